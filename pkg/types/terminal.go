package types

import "time"

// TerminalCreateRequest is the request body for creating a terminal session.
type TerminalCreateRequest struct {
	Cols      int    `json:"cols,omitempty"`      // default 80
	Rows      int    `json:"rows,omitempty"`      // default 24
	Principal string `json:"principal,omitempty"` // owning user, for audit and authz
}

// TerminalSession represents an active terminal session.
type TerminalSession struct {
	SessionID   string    `json:"sessionID"`
	WorkspaceID string    `json:"workspaceID"`
	Principal   string    `json:"principal,omitempty"`
	Cols        int       `json:"cols"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"createdAt"`
	Active      bool      `json:"active"`
	AttachToken string    `json:"attachToken,omitempty"` // workspace-scoped JWT for the ws endpoint
}

// TerminalResizeRequest resizes a terminal. Also used as a WebSocket
// control frame with Type set to "resize".
type TerminalResizeRequest struct {
	Type string `json:"type,omitempty"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// TerminalCommandRequest injects a command line into a session as if typed.
type TerminalCommandRequest struct {
	Command string `json:"command"`
}

// TerminalControlFrame is a JSON text frame sent to the viewer over the
// WebSocket, e.g. {"type":"exit"} when the shell process ends.
type TerminalControlFrame struct {
	Type string `json:"type"`
}
