package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"assistbot/pkg/config"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "dispatch.engine").Info("Dispatch event", "request_id", "42", "ok", true)

	entry := decodeEntry(t, out.String())

	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Dispatch event" {
		t.Fatalf("message = %q, want %q", entry.Message, "Dispatch event")
	}
	if entry.Component != "dispatch.engine" {
		t.Fatalf("component = %q, want %q", entry.Component, "dispatch.engine")
	}
	if entry.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if got := entry.Fields["request_id"]; got != "42" {
		t.Fatalf("fields.request_id = %v, want %q", got, "42")
	}
	if got := entry.Fields["ok"]; got != true {
		t.Fatalf("fields.ok = %v, want true", got)
	}
}

func TestLoggerMasksSenderIDs(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("sender_id", "33612345678").Info("Received message", "to", "33698765432")

	entry := decodeEntry(t, out.String())
	if entry.Sender != "3361****678" {
		t.Fatalf("sender = %q, want masked", entry.Sender)
	}
	if got := entry.Fields["to"]; got != "3369****432" {
		t.Fatalf("fields.to = %v, want masked", got)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	t.Setenv(envLevel, "debug")
	t.Setenv(envFormat, "text")

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerRejectsUnknownFormat(t *testing.T) {
	unsetLoggingEnv(t)

	if _, err := newWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoggerDefaultsToTextFormat(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Default format")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format by default, got %q", line)
	}
}

func TestMaskSender(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "33612345678", want: "3361****678"},
		{in: "telegram:123456789", want: "telegram:1234**789"},
		{in: "12345", want: "12345"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := MaskSender(tt.in); got != tt.want {
			t.Fatalf("MaskSender(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview(" hello "); got != "hello" {
		t.Fatalf("Preview short = %q, want %q", got, "hello")
	}

	long := strings.Repeat("a", previewLimit+20)
	got := Preview(long)
	if len(got) != previewLimit+3 {
		t.Fatalf("Preview long len = %d, want %d", len(got), previewLimit+3)
	}

	accented := strings.Repeat("é", previewLimit)
	if got := Preview(accented); !strings.HasSuffix(got, "...") || !utf8Valid(got) {
		t.Fatalf("Preview split a rune: %q", got)
	}
}

func decodeEntry(t *testing.T, raw string) LogEntry {
	t.Helper()

	line := strings.TrimSpace(raw)
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	return entry
}

func utf8Valid(s string) bool {
	return strings.ToValidUTF8(s, "�") == s
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envLevel, "")
	t.Setenv(envFormat, "")
	t.Setenv(envAddSource, "")
	_ = os.Unsetenv(envLevel)
	_ = os.Unsetenv(envFormat)
	_ = os.Unsetenv(envAddSource)
}
