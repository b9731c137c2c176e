package pty

import (
	"errors"
	"os"
	"testing"
	"time"
)

func requireShell(t *testing.T) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	return "/bin/sh"
}

// drainUntilError reads the pty until the shell's output stream ends.
func drainUntilError(p Proc) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := p.Read(buf); err != nil {
				close(done)
				return
			}
		}
	}()
	return done
}

func TestSpawnAndShellExit(t *testing.T) {
	shell := requireShell(t)

	p, err := NewSpawner().Spawn(Config{Shell: shell, Rows: 10, Cols: 40})
	if err != nil {
		t.Fatalf("Spawn returned error: %v", err)
	}
	if p.PID() <= 0 {
		t.Errorf("expected positive pid, got %d", p.PID())
	}

	eof := drainUntilError(p)

	if _, err := p.Write([]byte("exit\n")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	select {
	case <-eof:
	case <-time.After(5 * time.Second):
		p.Kill()
		t.Fatal("read stream did not end after shell exit")
	}

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("done channel not closed after shell exit")
	}

	if _, err := p.Write([]byte("x")); !errors.Is(err, ErrProcessExited) {
		t.Errorf("expected ErrProcessExited on write after exit, got %v", err)
	}
	if err := p.Resize(20, 80); !errors.Is(err, ErrProcessExited) {
		t.Errorf("expected ErrProcessExited on resize after exit, got %v", err)
	}
}

func TestKillTerminatesShell(t *testing.T) {
	shell := requireShell(t)

	p, err := NewSpawner().Spawn(Config{Shell: shell, Rows: 10, Cols: 40})
	if err != nil {
		t.Fatalf("Spawn returned error: %v", err)
	}

	eof := drainUntilError(p)
	p.Kill()

	// SIGTERM, then SIGKILL after the grace period; well within 5s.
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("done channel not closed after Kill")
	}

	select {
	case <-eof:
	case <-time.After(5 * time.Second):
		t.Fatal("read stream did not end after Kill")
	}
}

func TestSpawnRejectsMissingWorkingDir(t *testing.T) {
	shell := requireShell(t)

	if _, err := NewSpawner().Spawn(Config{
		Shell:      shell,
		WorkingDir: "/nonexistent/workterm-test",
	}); err == nil {
		t.Fatal("expected error for missing working directory, got nil")
	}
}

func TestResizeRunningShell(t *testing.T) {
	shell := requireShell(t)

	p, err := NewSpawner().Spawn(Config{Shell: shell, Rows: 10, Cols: 40})
	if err != nil {
		t.Fatalf("Spawn returned error: %v", err)
	}
	defer p.Kill()

	if err := p.Resize(24, 80); err != nil {
		t.Errorf("Resize returned error: %v", err)
	}
}
