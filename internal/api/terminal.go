package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/workterm/workterm/internal/ansi"
	"github.com/workterm/workterm/internal/session"
	"github.com/workterm/workterm/pkg/types"
)

// attachTokenTTL bounds how long a freshly issued attach token stays valid.
const attachTokenTTL = 12 * time.Hour

func (s *Server) createTerminal(c echo.Context) error {
	workspaceID := c.Param("id")

	var req types.TerminalCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	principal := req.Principal
	if principal == "" {
		principal = c.Request().Header.Get("X-Principal")
	}

	if !s.authz.Allow(principal, workspaceID) {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "principal not allowed in workspace",
		})
	}

	sess, err := s.manager.Create(workspaceID, principal, req.Rows, req.Cols)
	if err != nil {
		return sessionError(c, err)
	}

	resp := toWireSession(sess.Info())
	if s.issuer.Enabled() {
		token, err := s.issuer.IssueAttachToken(principal, workspaceID, sess.ID, attachTokenTTL)
		if err != nil {
			_ = s.manager.Close(sess.ID)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "issue attach token: " + err.Error(),
			})
		}
		resp.AttachToken = token
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) listTerminals(c echo.Context) error {
	workspaceID := c.Param("id")

	infos := s.manager.List(workspaceID)
	sessions := make([]types.TerminalSession, 0, len(infos))
	for _, info := range infos {
		sessions = append(sessions, toWireSession(info))
	}
	return c.JSON(http.StatusOK, sessions)
}

func (s *Server) getTerminal(c echo.Context) error {
	sess, err := s.manager.Get(c.Param("sessionID"))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, toWireSession(sess.Info()))
}

func (s *Server) killTerminal(c echo.Context) error {
	if err := s.manager.Close(c.Param("sessionID")); err != nil {
		return sessionError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) runCommand(c echo.Context) error {
	var req types.TerminalCommandRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}
	if req.Command == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "command is required",
		})
	}

	if err := s.manager.SendCommand(c.Param("sessionID"), req.Command); err != nil {
		return sessionError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) resizeTerminal(c echo.Context) error {
	var req types.TerminalResizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}
	if req.Rows <= 0 || req.Cols <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "rows and cols must be positive",
		})
	}

	if err := s.manager.Resize(c.Param("sessionID"), req.Rows, req.Cols); err != nil {
		return sessionError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// renderCapture turns a raw captured byte buffer into styled runs for
// history and log views.
func (s *Server) renderCapture(c echo.Context) error {
	var req types.RenderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	runs := ansi.RenderBytes(req.Data)
	out := make([]types.StyledRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, toWireRun(r))
	}
	return c.JSON(http.StatusOK, types.RenderResponse{Runs: out})
}

func toWireSession(info session.Info) types.TerminalSession {
	return types.TerminalSession{
		SessionID:   info.ID,
		WorkspaceID: info.WorkspaceID,
		Principal:   info.Principal,
		Rows:        info.Rows,
		Cols:        info.Cols,
		CreatedAt:   info.CreatedAt,
		Active:      !info.Closed,
	}
}

func toWireRun(r ansi.Run) types.StyledRun {
	out := types.StyledRun{
		Text:      r.Text,
		Bold:      r.Attr.Bold,
		Underline: r.Attr.Underline,
	}
	if r.Attr.FG != nil {
		out.FG = r.Attr.FG.Hex()
	}
	if r.Attr.BG != nil {
		out.BG = r.Attr.BG.Hex()
	}
	return out
}

// sessionError maps session manager errors to HTTP responses.
func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrProcessExited):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrInputBackpressure):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrSpawnFailed):
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
