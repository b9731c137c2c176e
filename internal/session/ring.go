package session

import "sync"

// Ring is a fixed-capacity byte buffer holding the most recent terminal
// output. When full, the oldest bytes are dropped. A reattaching viewer is
// replayed the current contents, so reads are non-destructive.
type Ring struct {
	mu     sync.Mutex
	data   []byte
	start  int
	length int
}

// NewRing creates a ring holding at most capacity bytes.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{data: make([]byte, capacity)}
}

// Write appends p, dropping the oldest bytes once capacity is exceeded.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.data)
	if len(p) >= size {
		// Only the tail of p survives.
		copy(r.data, p[len(p)-size:])
		r.start = 0
		r.length = size
		return len(p), nil
	}

	for _, b := range p {
		idx := (r.start + r.length) % size
		r.data[idx] = b
		if r.length < size {
			r.length++
		} else {
			r.start = (r.start + 1) % size
		}
	}
	return len(p), nil
}

// Snapshot returns a copy of the buffered bytes in write order.
func (r *Ring) Snapshot() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, r.length)
	n := copy(out, r.data[r.start:min(r.start+r.length, len(r.data))])
	if n < r.length {
		copy(out[n:], r.data[:r.length-n])
	}
	return out
}

// Len returns the number of buffered bytes.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length
}
