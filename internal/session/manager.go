// Package session is the terminal session manager: it maps session IDs to
// supervised PTY processes, serializes input, buffers output history for
// reattachment and enforces the idle teardown policy. It is independent of
// the transport carrying sessions to viewers.
package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/workterm/workterm/internal/metrics"
	"github.com/workterm/workterm/internal/pty"
	"github.com/workterm/workterm/internal/workspace"
)

const (
	// inputQueueDepth bounds how many pending input messages a session
	// holds before senders experience backpressure.
	inputQueueDepth = 64

	// enqueueTimeout bounds how long a sender blocks on a full queue.
	enqueueTimeout = 5 * time.Second

	readBufSize = 4096
)

// Manager owns the session table. All per-session state is guarded by the
// session's own lock, so operations on different sessions never contend.
type Manager struct {
	spawner      pty.Spawner
	resolver     workspace.Resolver
	historyBytes int
	shell        string

	mu       sync.RWMutex
	sessions map[string]*Session

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// NewManager creates a session manager. historyBytes is the per-session
// scrollback ring capacity; shell overrides the spawned shell binary when
// non-empty.
func NewManager(spawner pty.Spawner, resolver workspace.Resolver, historyBytes int, shell string) *Manager {
	return &Manager{
		spawner:      spawner,
		resolver:     resolver,
		historyBytes: historyBytes,
		shell:        shell,
		sessions:     make(map[string]*Session),
		sweepStop:    make(chan struct{}),
	}
}

// Create spawns a shell in the workspace's working directory and registers
// a new session for it.
func (m *Manager) Create(workspaceID, principal string, rows, cols int) (*Session, error) {
	dir, env, err := m.resolver.Resolve(workspaceID)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace %s: %w", workspaceID, err)
	}

	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}

	proc, err := m.spawner.Spawn(pty.Config{
		Shell:      m.shell,
		WorkingDir: dir,
		Env:        env,
		Rows:       rows,
		Cols:       cols,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	now := time.Now()
	s := &Session{
		ID:          uuid.New().String()[:8],
		WorkspaceID: workspaceID,
		Principal:   principal,
		CreatedAt:   now,
		proc:        proc,
		history:     NewRing(m.historyBytes),
		input:       make(chan []byte, inputQueueDepth),
		closeCh:     make(chan struct{}),
		rows:        rows,
		cols:        cols,
		lastActive:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	go s.writeLoop()
	go m.readLoop(s)

	metrics.SessionsActive.Inc()
	metrics.SessionCreatesTotal.Inc()
	log.Printf("workterm: session %s created for workspace %s (pid %d)", s.ID, workspaceID, proc.PID())

	return s, nil
}

// readLoop is the single reader of the session's PTY output. Chunks go to
// the history ring and the attached sink in production order. When the
// shell exits the session moves to closed.
func (m *Manager) readLoop(s *Session) {
	buf := make([]byte, readBufSize)
	for {
		n, err := s.proc.Read(buf)
		if n > 0 {
			metrics.PTYBytesReadTotal.Add(float64(n))
			s.deliver(buf[:n])
		}
		if err != nil {
			break
		}
	}

	s.close(true)
	metrics.SessionsActive.Dec()
	metrics.SessionClosesTotal.Inc()
	log.Printf("workterm: session %s shell exited", s.ID)
}

// Get returns the session for id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns snapshots of all sessions, optionally filtered by workspace.
func (m *Manager) List(workspaceID string) []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		if workspaceID != "" && s.WorkspaceID != workspaceID {
			continue
		}
		infos = append(infos, s.Info())
	}
	return infos
}

// Attach binds sink to receive the session's subsequent output, implicitly
// detaching any prior sink, and replays buffered history.
func (m *Manager) Attach(id string, sink Sink) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.attach(sink)
}

// Detach removes the session's sink. The shell keeps running; output keeps
// accumulating in the history ring for a later reattach.
func (m *Manager) Detach(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.detach(nil)
	return nil
}

// DetachSink removes sink only if it is still the session's attached sink.
// Used by transports on connection loss, where a newer viewer may already
// have taken over.
func (m *Manager) DetachSink(id string, sink Sink) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.detach(sink)
	return nil
}

// SendInput queues raw input bytes for the session. Each call's bytes are
// written to the PTY atomically and in FIFO acceptance order.
func (m *Manager) SendInput(id string, data []byte) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.enqueue(data, enqueueTimeout)
}

// SendCommand injects a command line as if typed, terminated by newline.
// It goes through the same queue as interactive input, so it is never
// interleaved inside a partially-typed line.
func (m *Manager) SendCommand(id, commandLine string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.enqueue([]byte(commandLine+"\n"), enqueueTimeout)
}

// Resize changes the session's terminal geometry.
func (m *Manager) Resize(id string, rows, cols int) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrProcessExited
	}
	s.rows = rows
	s.cols = cols
	s.lastActive = time.Now()
	s.mu.Unlock()

	return s.proc.Resize(rows, cols)
}

// Close kills the session's shell and releases the session slot. Safe to
// call concurrently with in-flight reads and writes.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.close(false)
	return nil
}

// CloseAll tears down every session. Used at server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close(false)
	}
}

// SweepIdle closes sessions that have no attached sink and no activity for
// longer than maxIdle, and releases the slots of sessions whose shell has
// already exited. Returns the number of sessions removed.
func (m *Manager) SweepIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.RUnlock()

	removed := 0
	for _, s := range candidates {
		info := s.Info()
		if info.Closed || (!info.Attached && info.LastActive.Before(cutoff)) {
			if err := m.Close(s.ID); err == nil {
				removed++
				log.Printf("workterm: session %s swept (idle since %s)", s.ID, info.LastActive.Format(time.RFC3339))
			}
		}
	}
	return removed
}

// StartSweeper runs SweepIdle every interval until StopSweeper is called.
func (m *Manager) StartSweeper(interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.SweepIdle(maxIdle)
			case <-m.sweepStop:
				return
			}
		}
	}()
}

// StopSweeper stops the background idle sweep.
func (m *Manager) StopSweeper() {
	m.sweepOnce.Do(func() { close(m.sweepStop) })
}
