package types

// RenderRequest is the request body for rendering captured terminal output.
// Data carries the raw bytes, base64-encoded by encoding/json.
type RenderRequest struct {
	Data []byte `json:"data"`
}

// StyledRun is a span of rendered text sharing one attribute state.
// Colors are "#rrggbb" strings, empty for the terminal default.
type StyledRun struct {
	Text      string `json:"text"`
	FG        string `json:"fg,omitempty"`
	BG        string `json:"bg,omitempty"`
	Bold      bool   `json:"bold,omitempty"`
	Underline bool   `json:"underline,omitempty"`
}

// RenderResponse is the list of styled runs for a capture.
type RenderResponse struct {
	Runs []StyledRun `json:"runs"`
}
