package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, format Format) (Logger, *os.File, func() string) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	logger := NewLogger(&Config{Level: slog.LevelDebug, Format: format, Output: w, Version: "test"})
	return logger, w, func() string {
		w.Close()
		var buf bytes.Buffer
		buf.ReadFrom(r)
		return buf.String()
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	logger, _, read := newTestLogger(t, FormatJSON)
	logger.Info("hello", "count", 3)
	out := read()

	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &decoded); err != nil {
		t.Fatalf("expected valid JSON line, got %q: %v", out, err)
	}
	if decoded["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", decoded["msg"])
	}
	if decoded["service"] != "rv" {
		t.Errorf("service = %v, want rv", decoded["service"])
	}
}

func TestLogger_SanitizesControlCharacters(t *testing.T) {
	logger, _, read := newTestLogger(t, FormatJSON)
	logger.Info("job", "name", "evil\nINJECTED=true")
	out := read()

	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if strings.Contains(decoded["name"].(string), "\n") {
		t.Errorf("expected newline stripped from logged field, got %q", decoded["name"])
	}
}

func TestLogger_WithContext(t *testing.T) {
	logger, _, read := newTestLogger(t, FormatJSON)
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithJobID(ctx, "123")
	logger.WithContext(ctx).Info("submitted")
	out := read()

	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["request_id"] != "req-1" || decoded["job_id"] != "123" {
		t.Errorf("expected correlation fields present, got %v", decoded)
	}
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.With("a", 1).Info("y")
	l.WithContext(context.Background()).Error("z")
}
