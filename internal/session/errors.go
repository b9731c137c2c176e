package session

import (
	"errors"

	"github.com/workterm/workterm/internal/pty"
)

var (
	// ErrSessionNotFound is returned for unknown or released session IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSpawnFailed wraps failures to start the shell process.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrInputBackpressure is returned when the session's input queue stays
	// full past the enqueue timeout.
	ErrInputBackpressure = errors.New("input queue full")

	// ErrProcessExited is returned for writes and resizes after the shell
	// has exited or the session was closed.
	ErrProcessExited = pty.ErrProcessExited
)
