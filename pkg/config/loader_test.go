package config_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/payal-22/Collab-Canvas/pkg/config"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))

	cfg, err := config.Load(logger, "no-such-config")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("Expected default address ':8080', got '%s'", cfg.Server.Address)
	}
	if cfg.Server.ConnectionLimit.MaxPerIP != 0 {
		t.Errorf("Expected connection limit disabled by default, got %d", cfg.Server.ConnectionLimit.MaxPerIP)
	}
	if cfg.Server.ConnectionLimit.Mode != "reject" {
		t.Errorf("Expected default mode 'reject', got '%s'", cfg.Server.ConnectionLimit.Mode)
	}
	if cfg.Transport.ReadTimeout != 60*time.Second {
		t.Errorf("Expected default read timeout 60s, got %s", cfg.Transport.ReadTimeout)
	}
	if cfg.Rooms.GracePeriod != 5*time.Minute {
		t.Errorf("Expected default grace period 5m, got %s", cfg.Rooms.GracePeriod)
	}
	if !cfg.Rooms.ClearEcho {
		t.Error("Expected clearEcho to default to true")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", cfg.Logging.Level)
	}
}
