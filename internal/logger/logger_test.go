package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "INFO", Format: "json"}, &buf)
	l.Debug("hidden")
	l.Info("query executed", "engine", "fallback", "rows", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["msg"] != "query executed" || rec["engine"] != "fallback" || rec["rows"] != float64(3) {
		t.Fatalf("record %v", rec)
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "DEBUG"}, &buf).Debug("engine selected", "engine", "sqlite")
	if !strings.Contains(buf.String(), "engine=sqlite") {
		t.Fatalf("text output %q", buf.String())
	}
}

func TestGetInitializes(t *testing.T) {
	if Get() == nil {
		t.Fatalf("Get returned nil")
	}
}
