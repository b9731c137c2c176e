package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/workterm/workterm/internal/metrics"
	"github.com/workterm/workterm/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now; tighten in production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsWriteTimeout bounds blocking on a slow browser client.
const wsWriteTimeout = 10 * time.Second

// wsSink adapts one WebSocket connection to the session manager's Sink.
// Binary frames carry raw terminal bytes; JSON text frames carry control
// messages.
type wsSink struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSink) Output(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *wsSink) Exited()   { s.closeWith("exit") }
func (s *wsSink) Detached() { s.closeWith("detached") }

// closeWith sends a final control frame and closes the connection, which
// also unblocks the handler's read loop.
func (s *wsSink) closeWith(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if payload, err := json.Marshal(types.TerminalControlFrame{Type: kind}); err == nil {
		_ = s.conn.WriteMessage(websocket.TextMessage, payload)
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = s.conn.Close()
}

// terminalWebSocket attaches a viewer to a session. Inbound binary frames
// are forwarded as input; inbound text frames carry resize requests.
// Losing the connection detaches the viewer but never kills the shell.
func (s *Server) terminalWebSocket(c echo.Context) error {
	sessionID := c.Param("sessionID")

	if s.issuer.Enabled() {
		claims, err := s.issuer.ValidateAttachToken(c.QueryParam("token"))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid attach token",
			})
		}
		if claims.SessionID != sessionID {
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "token not valid for this session",
			})
		}
	}

	if _, err := s.manager.Get(sessionID); err != nil {
		return sessionError(c, err)
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	sink := &wsSink{conn: ws}
	if err := s.manager.Attach(sessionID, sink); err != nil {
		sink.closeWith("exit")
		return nil
	}

	metrics.ViewersActive.Inc()
	defer metrics.ViewersActive.Dec()

	for {
		mt, msg, err := ws.ReadMessage()
		if err != nil {
			break
		}

		switch mt {
		case websocket.BinaryMessage:
			// If the shell is gone the sink's exit frame closes this
			// connection and ends the loop.
			_ = s.manager.SendInput(sessionID, msg)
		case websocket.TextMessage:
			var req types.TerminalResizeRequest
			if json.Unmarshal(msg, &req) == nil && req.Type == "resize" && req.Rows > 0 && req.Cols > 0 {
				_ = s.manager.Resize(sessionID, req.Rows, req.Cols)
			}
		}
	}

	// Connection lost or closed: detach, never close the session.
	_ = s.manager.DetachSink(sessionID, sink)
	return nil
}
