package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/p-arndt/shellbox/internal/config"
	"github.com/p-arndt/shellbox/internal/store"
)

// TestConfig returns a Config with sensible test defaults: an enabled
// process sandbox, an in-memory store and no rate limiting.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Listen = "127.0.0.1:0"
	cfg.DBPath = ":memory:"
	cfg.SettingsPath = filepath.Join(t.TempDir(), "config.json")
	cfg.Sandbox.Enabled = true
	cfg.Sandbox.TempRoot = t.TempDir()
	cfg.Sandbox.TimeoutSeconds = 10
	cfg.RateLimit.RequestsPerSecond = 0
	return cfg
}

func TestSession(id string) *store.Session {
	now := time.Now().UTC()
	return &store.Session{
		ID:           id,
		WorkingDir:   "/tmp/ai-sandbox-" + id,
		Backend:      config.BackendProcess,
		Status:       store.StatusRunning,
		OwnerPID:     12345,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// NewTestStore creates an in-memory SQLite store for testing.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:", 0)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
