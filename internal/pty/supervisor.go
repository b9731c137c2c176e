// Package pty owns the OS pseudo-terminal and child shell process behind a
// terminal session. The Spawner interface isolates the platform pty
// syscalls so the session manager can be tested against a fake.
package pty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	ptylib "github.com/creack/pty"
)

// ErrProcessExited is returned by writes and resizes after the child shell
// has exited.
var ErrProcessExited = errors.New("process has exited")

// killGrace is how long Kill waits for the child to exit after SIGTERM
// before escalating to SIGKILL.
const killGrace = 2 * time.Second

// Config describes the shell process to spawn.
type Config struct {
	Shell      string   // default: $SHELL, then /bin/bash, then /bin/sh
	WorkingDir string   // must exist
	Env        []string // appended to the parent environment
	Rows       int      // default 24
	Cols       int      // default 80
}

// Proc is a handle to one running pty-backed shell. Read blocks until the
// child produces output and returns io.EOF (or an error) once it exits;
// it is the only blocking operation exposed here.
type Proc interface {
	io.Reader
	io.Writer
	Resize(rows, cols int) error
	Kill()
	PID() int
	Done() <-chan struct{}
}

// Spawner starts pty-backed shell processes.
type Spawner interface {
	Spawn(cfg Config) (Proc, error)
}

// NewSpawner returns the OS-backed spawner.
func NewSpawner() Spawner {
	return &spawner{}
}

type spawner struct{}

func (s *spawner) Spawn(cfg Config) (Proc, error) {
	shell := cfg.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		// Try common shells
		for _, sh := range []string{"/bin/bash", "/bin/sh"} {
			if _, err := os.Stat(sh); err == nil {
				shell = sh
				break
			}
		}
	}
	if shell == "" {
		return nil, fmt.Errorf("no shell found")
	}

	if cfg.WorkingDir != "" {
		info, err := os.Stat(cfg.WorkingDir)
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("working directory %s is not a directory", cfg.WorkingDir)
		}
	}

	rows := cfg.Rows
	cols := cfg.Cols
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}

	cmd := exec.Command(shell)
	cmd.Dir = cfg.WorkingDir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.Env = append(cmd.Env, cfg.Env...)

	ptmx, err := ptylib.StartWithSize(cmd, &ptylib.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	p := &proc{
		cmd:  cmd,
		ptmx: ptmx,
		done: make(chan struct{}),
	}

	go func() {
		_ = cmd.Wait()
		close(p.done)
		p.closePTY()
	}()

	return p, nil
}

type proc struct {
	cmd  *exec.Cmd
	ptmx *os.File
	done chan struct{}

	killOnce  sync.Once
	closeOnce sync.Once
}

func (p *proc) Read(b []byte) (int, error) {
	n, err := p.ptmx.Read(b)
	if err != nil && p.exited() {
		// Linux reports EIO on the master once the slave side is gone.
		return n, io.EOF
	}
	return n, err
}

func (p *proc) Write(b []byte) (int, error) {
	if p.exited() {
		return 0, ErrProcessExited
	}
	n, err := p.ptmx.Write(b)
	if err != nil && p.exited() {
		return n, ErrProcessExited
	}
	return n, err
}

func (p *proc) Resize(rows, cols int) error {
	if p.exited() {
		return ErrProcessExited
	}
	if err := ptylib.Setsize(p.ptmx, &ptylib.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	}); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	return nil
}

// Kill sends SIGTERM, escalates to SIGKILL after a grace period, and
// releases the pty descriptor on every path.
func (p *proc) Kill() {
	p.killOnce.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Signal(syscall.SIGTERM)
		}
		go func() {
			select {
			case <-p.done:
			case <-time.After(killGrace):
				if p.cmd.Process != nil {
					_ = p.cmd.Process.Kill()
				}
				<-p.done
			}
			p.closePTY()
		}()
	})
}

func (p *proc) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *proc) Done() <-chan struct{} {
	return p.done
}

func (p *proc) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *proc) closePTY() {
	p.closeOnce.Do(func() {
		_ = p.ptmx.Close()
	})
}
