package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/workterm/workterm/pkg/types"
)

// Client is an HTTP client for the workterm API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new workterm API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doRequest performs an HTTP request with API key authentication.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	reqURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	return resp, nil
}

// CreateTerminal starts a new terminal session in a workspace.
func (c *Client) CreateTerminal(ctx context.Context, workspaceID string, req types.TerminalCreateRequest) (*types.TerminalSession, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/workspaces/%s/terminals", workspaceID), req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var session types.TerminalSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &session, nil
}

// ListTerminals lists the terminal sessions in a workspace.
func (c *Client) ListTerminals(ctx context.Context, workspaceID string) ([]types.TerminalSession, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/workspaces/%s/terminals", workspaceID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var sessions []types.TerminalSession
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return sessions, nil
}

// GetTerminal gets a terminal session by ID.
func (c *Client) GetTerminal(ctx context.Context, sessionID string) (*types.TerminalSession, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/terminals/%s", sessionID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var session types.TerminalSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &session, nil
}

// KillTerminal kills (deletes) a terminal session.
func (c *Client) KillTerminal(ctx context.Context, sessionID string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/terminals/%s", sessionID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}

// RunCommand injects a command line into a terminal session as if typed.
func (c *Client) RunCommand(ctx context.Context, sessionID, command string) error {
	body := types.TerminalCommandRequest{Command: command}
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/terminals/%s/command", sessionID), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// ResizeTerminal changes the terminal geometry of a session.
func (c *Client) ResizeTerminal(ctx context.Context, sessionID string, rows, cols int) error {
	body := types.TerminalResizeRequest{Type: "resize", Rows: rows, Cols: cols}
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/terminals/%s/resize", sessionID), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Render turns a raw captured byte buffer into styled runs.
func (c *Client) Render(ctx context.Context, data []byte) ([]types.StyledRun, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/render", types.RenderRequest{Data: data})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result types.RenderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Runs, nil
}

// DialTerminal opens the WebSocket stream for a terminal session. Binary
// frames carry terminal bytes; JSON text frames carry control messages.
// attachToken may be empty when the server runs without a JWT secret.
func (c *Client) DialTerminal(ctx context.Context, sessionID, attachToken string) (*websocket.Conn, error) {
	wsURL, err := c.terminalWSURL(sessionID, attachToken)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("X-API-Key", c.apiKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("dial terminal (status %d): %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("dial terminal: %w", err)
	}
	return conn, nil
}

func (c *Client) terminalWSURL(sessionID, attachToken string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + fmt.Sprintf("/terminals/%s/ws", sessionID)
	if attachToken != "" {
		q := u.Query()
		q.Set("token", attachToken)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
