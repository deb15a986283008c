package logging

import (
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := New(tt.level)
			if logger == nil {
				t.Fatal("expected logger, got nil")
			}
			if !logger.Enabled(nil, tt.enabled) {
				t.Errorf("expected level %v to be enabled for %q", tt.enabled, tt.level)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("expected logger, got nil")
	}
	if logger.Enabled(nil, slog.LevelDebug) {
		t.Error("default logger should not enable debug")
	}
}

func TestComponent(t *testing.T) {
	logger := New("info").Component("webchat")
	if logger == nil {
		t.Fatal("expected component logger, got nil")
	}
	logger.Info("component logger works")
}
