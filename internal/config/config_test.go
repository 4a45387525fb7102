package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STATE_FILE", "/tmp/state.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TextContextMode != ContextModeLatest {
		t.Errorf("TextContextMode = %q, want %q", cfg.TextContextMode, ContextModeLatest)
	}
	if cfg.StreamWordDelay != 50*time.Millisecond {
		t.Errorf("StreamWordDelay = %s, want 50ms", cfg.StreamWordDelay)
	}
	if cfg.ImageAPIURL != "https://image.pollinations.ai/prompt/" {
		t.Errorf("ImageAPIURL = %q", cfg.ImageAPIURL)
	}
	if cfg.StateFile != "/tmp/state.json" {
		t.Errorf("StateFile = %q", cfg.StateFile)
	}
}

func TestLoadRejectsUnknownContextMode(t *testing.T) {
	t.Setenv("TEXT_CONTEXT_MODE", "everything")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown context mode")
	}
}

func TestLoadFullContextMode(t *testing.T) {
	t.Setenv("TEXT_CONTEXT_MODE", "full")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TextContextMode != ContextModeFull {
		t.Errorf("TextContextMode = %q", cfg.TextContextMode)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %s", cfg.RequestTimeout)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
