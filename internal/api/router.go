// Package api is the transport surface of the terminal subsystem: a REST
// control plane for session lifecycle, a WebSocket bridge carrying raw
// terminal bytes to browser viewers, and a render endpoint for static
// styled captures.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/workterm/workterm/internal/auth"
	"github.com/workterm/workterm/internal/metrics"
	"github.com/workterm/workterm/internal/session"
)

// Server holds the API server dependencies.
type Server struct {
	echo    *echo.Echo
	manager *session.Manager
	issuer  *auth.TokenIssuer
	authz   auth.Authorizer
}

// NewServer creates a new API server with all routes configured.
func NewServer(mgr *session.Manager, issuer *auth.TokenIssuer, authz auth.Authorizer, apiKey string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		manager: mgr,
		issuer:  issuer,
		authz:   authz,
	}

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(metrics.EchoMiddleware())

	// Health check and metrics (no auth)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// API routes (with auth)
	api := e.Group("")
	api.Use(auth.APIKeyMiddleware(apiKey))

	// Terminal lifecycle
	api.POST("/workspaces/:id/terminals", s.createTerminal)
	api.GET("/workspaces/:id/terminals", s.listTerminals)
	api.GET("/terminals/:sessionID", s.getTerminal)
	api.DELETE("/terminals/:sessionID", s.killTerminal)

	// Session I/O
	api.POST("/terminals/:sessionID/command", s.runCommand)
	api.POST("/terminals/:sessionID/resize", s.resizeTerminal)
	api.GET("/terminals/:sessionID/ws", s.terminalWebSocket)

	// Static capture rendering
	api.POST("/render", s.renderCapture)

	return s
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	return s.echo.Close()
}

// ServeHTTP implements http.Handler for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
