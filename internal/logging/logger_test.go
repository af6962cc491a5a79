package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf})
	logger.Info("hello", "document_id", "doc1")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Errorf("expected JSON output, got: %s", out)
	}
	if !strings.Contains(out, `"document_id":"doc1"`) {
		t.Errorf("expected attribute in output, got: %s", out)
	}
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "text", Output: &buf})
	logger.Info("hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got: %s", buf.String())
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "json", Output: &buf})
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("expected info to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("expected warn to pass, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithHelpers(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf})
	logger.WithDocument("doc1").WithStage("generation").WithModule("themes").Info("tick")

	out := buf.String()
	for _, want := range []string{`"document_id":"doc1"`, `"stage":"generation"`, `"module":"themes"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestPrettyHandler(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := &Logger{Logger: slog.New(NewPrettyHandler(&buf, slog.LevelInfo))}
	logger.WithRun("run1").Info("started")

	out := buf.String()
	if !strings.Contains(out, "INF") || !strings.Contains(out, "started") {
		t.Errorf("unexpected pretty output: %s", out)
	}
	if !strings.Contains(out, "run_id") {
		t.Errorf("expected run_id attr, got: %s", out)
	}
}

func TestNewNop(t *testing.T) {
	t.Parallel()
	logger := NewNop()
	logger.Info("discarded")
}
