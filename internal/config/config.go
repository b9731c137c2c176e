package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the workterm server.
type Config struct {
	Port   int    // HTTP listen port
	APIKey string // platform API key; empty disables auth (dev mode)

	// Auth
	JWTSecret string // shared secret for workspace-scoped attach tokens

	// Workspaces
	WorkspaceRoot string // base directory containing one subdirectory per workspace
	Shell         string // shell binary; empty means $SHELL then /bin/bash

	// Session policy
	IdleTimeout   time.Duration // close unattached sessions idle longer than this
	SweepInterval time.Duration // how often the idle sweep runs
	HistoryBytes  int           // per-session scrollback ring capacity

	// Observability
	MetricsAddr string // standalone /metrics listener; empty disables it
}

// Load reads configuration from WORKTERM_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          7070,
		APIKey:        os.Getenv("WORKTERM_API_KEY"),
		JWTSecret:     os.Getenv("WORKTERM_JWT_SECRET"),
		WorkspaceRoot: "/workspaces",
		Shell:         os.Getenv("WORKTERM_SHELL"),
		IdleTimeout:   30 * time.Minute,
		SweepInterval: time.Minute,
		HistoryBytes:  256 * 1024,
		MetricsAddr:   os.Getenv("WORKTERM_METRICS_ADDR"),
	}

	if v := os.Getenv("WORKTERM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WORKTERM_PORT %q: %w", v, err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("WORKTERM_WORKSPACE_ROOT"); v != "" {
		cfg.WorkspaceRoot = v
	}

	if v := os.Getenv("WORKTERM_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WORKTERM_IDLE_TIMEOUT %q: %w", v, err)
		}
		cfg.IdleTimeout = d
	}

	if v := os.Getenv("WORKTERM_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WORKTERM_SWEEP_INTERVAL %q: %w", v, err)
		}
		cfg.SweepInterval = d
	}

	if v := os.Getenv("WORKTERM_HISTORY_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid WORKTERM_HISTORY_BYTES %q", v)
		}
		cfg.HistoryBytes = n
	}

	return cfg, nil
}
