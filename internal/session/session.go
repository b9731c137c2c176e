package session

import (
	"sync"
	"time"

	"github.com/workterm/workterm/internal/metrics"
	"github.com/workterm/workterm/internal/pty"
)

// Sink receives a session's output on behalf of an attached viewer.
// Callbacks are serialized per session and stop once the session is
// detached or closed.
type Sink interface {
	// Output delivers a chunk of PTY output in production order.
	// A non-nil error detaches the sink.
	Output(data []byte) error
	// Exited signals that the shell process has ended.
	Exited()
	// Detached signals that another viewer attached in this sink's place.
	Detached()
}

// Session pairs one PTY-backed shell process with at most one attached
// viewer. Output is mirrored into a bounded history ring so a viewer that
// reconnects sees recent scrollback.
type Session struct {
	ID          string
	WorkspaceID string
	Principal   string
	CreatedAt   time.Time

	proc    pty.Proc
	history *Ring
	input   chan []byte
	closeCh chan struct{}

	mu         sync.Mutex
	rows, cols int
	lastActive time.Time
	closed     bool
	sink       Sink
}

// Info is a point-in-time snapshot of session state.
type Info struct {
	ID          string
	WorkspaceID string
	Principal   string
	Rows, Cols  int
	CreatedAt   time.Time
	LastActive  time.Time
	Attached    bool
	Closed      bool
}

// Info returns a snapshot of the session's state.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:          s.ID,
		WorkspaceID: s.WorkspaceID,
		Principal:   s.Principal,
		Rows:        s.rows,
		Cols:        s.cols,
		CreatedAt:   s.CreatedAt,
		LastActive:  s.lastActive,
		Attached:    s.sink != nil,
		Closed:      s.closed,
	}
}

// PID returns the shell's OS process id.
func (s *Session) PID() int {
	return s.proc.PID()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// enqueue places one input message on the write queue. The whole message is
// written to the PTY in a single call, so concurrent senders never
// interleave mid-message. Blocks at most enqueueTimeout under backpressure.
func (s *Session) enqueue(data []byte, timeout time.Duration) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrProcessExited
	}

	msg := append([]byte(nil), data...)

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case s.input <- msg:
		s.touch()
		return nil
	case <-s.closeCh:
		return ErrProcessExited
	case <-t.C:
		return ErrInputBackpressure
	}
}

// writeLoop is the single writer to the PTY input stream. It drains the
// input queue in FIFO order until the session closes.
func (s *Session) writeLoop() {
	for {
		select {
		case msg := <-s.input:
			n, err := s.proc.Write(msg)
			metrics.PTYBytesWrittenTotal.Add(float64(n))
			if err != nil {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

// deliver hands a chunk to the attached sink, if any. Runs under the
// session lock so no output is emitted after close or detach.
func (s *Session) deliver(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.lastActive = time.Now()
	s.history.Write(data)

	if s.sink != nil {
		if err := s.sink.Output(data); err != nil {
			s.sink = nil
		}
	}
}

// attach binds the sink, replacing (and notifying) any prior one, and
// replays buffered history so the new viewer has recent scrollback.
func (s *Session) attach(sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrProcessExited
	}

	if prev := s.sink; prev != nil {
		prev.Detached()
	}
	s.sink = sink
	s.lastActive = time.Now()

	if hist := s.history.Snapshot(); len(hist) > 0 {
		if err := sink.Output(hist); err != nil {
			s.sink = nil
			return err
		}
	}
	return nil
}

// detach clears the sink. A non-nil target only detaches if it is still
// the attached sink, so a stale connection cannot detach its replacement.
func (s *Session) detach(target Sink) {
	s.mu.Lock()
	if target == nil || s.sink == target {
		s.sink = nil
	}
	s.mu.Unlock()
}

// close tears the session down: marks it closed, stops the writer, kills
// the shell and notifies the viewer. Safe to call concurrently and more
// than once; after it returns no sink callbacks fire.
func (s *Session) close(processExited bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sink := s.sink
	s.sink = nil
	close(s.closeCh)
	s.mu.Unlock()

	if !processExited {
		s.proc.Kill()
	}
	if sink != nil {
		sink.Exited()
	}
}
