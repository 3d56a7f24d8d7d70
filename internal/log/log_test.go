package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)
	logger.Info("test message", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "test message") {
		t.Errorf("expected 'test message' in output, got %q", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("expected 'key=value' in output, got %q", out)
	}
}

func TestNew_DefaultLevelDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)
	logger.Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected debug output suppressed at INFO level, got %q", buf.String())
	}
}

func TestNewLevel_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLevel(&buf, slog.LevelDebug)
	logger.Debug("visible")

	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected debug output at DEBUG level, got %q", buf.String())
	}
}
