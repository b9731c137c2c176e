package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear env to test defaults
	os.Unsetenv("WORKTERM_PORT")
	os.Unsetenv("WORKTERM_API_KEY")
	os.Unsetenv("WORKTERM_WORKSPACE_ROOT")
	os.Unsetenv("WORKTERM_IDLE_TIMEOUT")
	os.Unsetenv("WORKTERM_HISTORY_BYTES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Port != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.Port)
	}
	if cfg.WorkspaceRoot != "/workspaces" {
		t.Errorf("expected workspace root /workspaces, got %s", cfg.WorkspaceRoot)
	}
	if cfg.IdleTimeout != 30*time.Minute {
		t.Errorf("expected idle timeout 30m, got %s", cfg.IdleTimeout)
	}
	if cfg.HistoryBytes != 256*1024 {
		t.Errorf("expected history bytes 262144, got %d", cfg.HistoryBytes)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("WORKTERM_PORT", "9999")
	os.Setenv("WORKTERM_API_KEY", "test-key")
	os.Setenv("WORKTERM_WORKSPACE_ROOT", "/srv/ws")
	os.Setenv("WORKTERM_IDLE_TIMEOUT", "5m")
	defer func() {
		os.Unsetenv("WORKTERM_PORT")
		os.Unsetenv("WORKTERM_API_KEY")
		os.Unsetenv("WORKTERM_WORKSPACE_ROOT")
		os.Unsetenv("WORKTERM_IDLE_TIMEOUT")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Port)
	}
	if cfg.APIKey != "test-key" {
		t.Errorf("expected API key test-key, got %s", cfg.APIKey)
	}
	if cfg.WorkspaceRoot != "/srv/ws" {
		t.Errorf("expected workspace root /srv/ws, got %s", cfg.WorkspaceRoot)
	}
	if cfg.IdleTimeout != 5*time.Minute {
		t.Errorf("expected idle timeout 5m, got %s", cfg.IdleTimeout)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	os.Setenv("WORKTERM_PORT", "not-a-number")
	defer os.Unsetenv("WORKTERM_PORT")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid port, got nil")
	}
}

func TestLoadInvalidIdleTimeout(t *testing.T) {
	os.Setenv("WORKTERM_IDLE_TIMEOUT", "soon")
	defer os.Unsetenv("WORKTERM_IDLE_TIMEOUT")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid idle timeout, got nil")
	}
}
