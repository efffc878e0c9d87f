// Package config tests for environment configuration loading.
package config

import (
	"testing"
	"time"
)

// TestLoad_defaults verifies defaults apply with an empty environment.
func TestLoad_defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SyncInterval != 30*time.Second {
		t.Errorf("SyncInterval = %v, want 30s", cfg.SyncInterval)
	}
	if cfg.StatusInterval != 5*time.Second {
		t.Errorf("StatusInterval = %v, want 5s", cfg.StatusInterval)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.RemoteBaseURL == "" {
		t.Error("RemoteBaseURL should have a default")
	}
}

// TestLoad_environmentOverrides verifies RESTRO_* variables win.
func TestLoad_environmentOverrides(t *testing.T) {
	t.Setenv("RESTRO_REMOTE_BASE_URL", "http://backend:9000")
	t.Setenv("RESTRO_SYNC_INTERVAL", "10s")
	t.Setenv("RESTRO_MAX_RETRIES", "5")
	t.Setenv("RESTRO_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RemoteBaseURL != "http://backend:9000" {
		t.Errorf("RemoteBaseURL = %q, want http://backend:9000", cfg.RemoteBaseURL)
	}
	if cfg.SyncInterval != 10*time.Second {
		t.Errorf("SyncInterval = %v, want 10s", cfg.SyncInterval)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

// TestLoad_invalidDuration verifies malformed values surface as errors.
func TestLoad_invalidDuration(t *testing.T) {
	t.Setenv("RESTRO_SYNC_INTERVAL", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail on a malformed duration")
	}
}
