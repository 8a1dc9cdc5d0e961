package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", input, want, got)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(WithJSON(true), WithWriter(&buffer), WithLevel("warn"), WithoutDefault())

	logger.Info("hidden")
	logger.Warn("shown", slog.String("session", "abc"))

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %q", len(lines), buffer.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if record["msg"] != "shown" || record["session"] != "abc" {
		t.Errorf("unexpected record %v", record)
	}
}

func TestContextLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(WithWriter(&buffer), WithoutDefault())

	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("expected stored logger")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger for empty context")
	}
}

func TestValidLevel(t *testing.T) {
	for _, level := range []string{"debug", "Info", "WARN", "error"} {
		if !ValidLevel(level) {
			t.Errorf("expected %q to be valid", level)
		}
	}
	for _, level := range []string{"", "verbose", "trace"} {
		if ValidLevel(level) {
			t.Errorf("expected %q to be invalid", level)
		}
	}
}
