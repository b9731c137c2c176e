package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/workterm/workterm/internal/api"
	"github.com/workterm/workterm/internal/auth"
	"github.com/workterm/workterm/internal/config"
	"github.com/workterm/workterm/internal/metrics"
	"github.com/workterm/workterm/internal/pty"
	"github.com/workterm/workterm/internal/session"
	"github.com/workterm/workterm/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.WorkspaceRoot, 0o755); err != nil {
		log.Fatalf("failed to initialize workspace root: %v", err)
	}
	resolver := workspace.NewDirResolver(cfg.WorkspaceRoot)
	log.Printf("workterm: workspace root: %s", cfg.WorkspaceRoot)

	mgr := session.NewManager(pty.NewSpawner(), resolver, cfg.HistoryBytes, cfg.Shell)
	mgr.StartSweeper(cfg.SweepInterval, cfg.IdleTimeout)
	defer mgr.StopSweeper()
	log.Printf("workterm: idle sweep every %s (timeout %s)", cfg.SweepInterval, cfg.IdleTimeout)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret)
	if issuer.Enabled() {
		log.Println("workterm: attach token issuer configured")
	} else {
		log.Println("workterm: no WORKTERM_JWT_SECRET configured, attach tokens disabled")
	}

	if cfg.APIKey == "" {
		log.Println("workterm: no WORKTERM_API_KEY configured, API auth disabled")
	}

	server := api.NewServer(mgr, issuer, auth.AllowAll{}, cfg.APIKey)

	if cfg.MetricsAddr != "" {
		metrics.StartMetricsServer(cfg.MetricsAddr)
		log.Printf("workterm: metrics server on %s", cfg.MetricsAddr)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("workterm: starting server on %s", addr)

	go func() {
		if err := server.Start(addr); err != nil {
			log.Printf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("workterm: shutting down...")
	if err := server.Close(); err != nil {
		log.Printf("error closing server: %v", err)
	}
	mgr.CloseAll()
}
