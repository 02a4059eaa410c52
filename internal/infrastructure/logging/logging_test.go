package logging_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/perceptio/backend/internal/infrastructure/logging"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return m
}

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "info", Output: &buf})

	logger.Info("session recorded", "user", "neo", "score", 3, "err", errors.New("boom"))

	m := decodeLine(t, &buf)
	if m["message"] != "session recorded" || m["level"] != "info" {
		t.Errorf("unexpected entry %v", m)
	}
	if m["user"] != "neo" || m["score"] != float64(3) || m["err"] != "boom" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "warn", Output: &buf})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}
	logger.Warn("shown")
	if buf.Len() == 0 {
		t.Error("expected warn to be written")
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "debug", Output: &buf})

	logger.With("component", "api").WithGroup("req").Debug("handled", "status", 200, slog.Group("db", "rows", 2))

	m := decodeLine(t, &buf)
	if m["component"] != "api" {
		t.Errorf("expected ungrouped component, got %v", m)
	}
	if m["req.status"] != float64(200) || m["req.db.rows"] != float64(2) {
		t.Errorf("expected grouped keys, got %v", m)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
		"off":     zerolog.Disabled,
	}
	for in, want := range tests {
		if got := logging.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
