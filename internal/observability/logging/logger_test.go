package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoggerEmitsServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLoggerTo(&buf, "worker", "info")
	logger.Info("document indexed", "document_id", "doc-1")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if line["service"] != "worker" {
		t.Errorf("service = %v", line["service"])
	}
	if line["document_id"] != "doc-1" {
		t.Errorf("document_id = %v", line["document_id"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLoggerTo(&buf, "api", "error")
	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info line emitted at error level: %s", buf.String())
	}
}
