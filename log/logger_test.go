package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/justapithecus/packetstream/types"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_SessionContext(t *testing.T) {
	prev := "s-000"
	meta := &types.SessionMeta{
		SessionID:         "s-001",
		Source:            "tcp://127.0.0.1:5672",
		Layout:            "amqp",
		Attempt:           2,
		PreviousSessionID: &prev,
	}
	var buf bytes.Buffer
	l := newLogger(meta, &buf, zapcore.InfoLevel)

	l.Info("session started", map[string]any{"chunk_size": 4096})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	checks := map[string]any{
		"message":             "session started",
		"level":               "info",
		"session_id":          "s-001",
		"source":              "tcp://127.0.0.1:5672",
		"layout":              "amqp",
		"previous_session_id": "s-000",
		"attempt":             float64(2),
	}
	for k, want := range checks {
		if e[k] != want {
			t.Errorf("%s = %v, want %v", k, e[k], want)
		}
	}
	if _, ok := e["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
	fields, _ := e["fields"].(map[string]any)
	if fields["chunk_size"] != float64(4096) {
		t.Errorf("fields.chunk_size = %v, want 4096", fields["chunk_size"])
	}
}

func TestLogger_Levels(t *testing.T) {
	meta := &types.SessionMeta{SessionID: "s-001", Attempt: 1}

	var quiet bytes.Buffer
	l := newLogger(meta, &quiet, zapcore.InfoLevel)
	l.Debug("event", nil)
	if quiet.Len() != 0 {
		t.Errorf("debug entry written at info level: %s", quiet.String())
	}
	if l.DebugEnabled() {
		t.Error("DebugEnabled() = true at info level")
	}

	var verbose bytes.Buffer
	v := newLogger(meta, &verbose, zapcore.DebugLevel)
	v.Debug("event", nil)
	if len(decodeLines(t, &verbose)) != 1 {
		t.Error("debug entry missing at debug level")
	}
	if !v.DebugEnabled() {
		t.Error("DebugEnabled() = false at debug level")
	}
}

func TestLogger_WithOutput(t *testing.T) {
	meta := &types.SessionMeta{SessionID: "s-001", Attempt: 1}
	var first, second bytes.Buffer
	l := newLogger(meta, &first, zapcore.InfoLevel).WithOutput(&second)

	l.Warn("redirected", nil)
	l.Debug("still filtered", nil)

	if first.Len() != 0 {
		t.Errorf("original writer received %q", first.String())
	}
	entries := decodeLines(t, &second)
	if len(entries) != 1 || entries[0]["session_id"] != "s-001" {
		t.Errorf("entries = %v, want one warn entry with session context", entries)
	}
}

func TestSugaredLogger(t *testing.T) {
	meta := &types.SessionMeta{SessionID: "s-001", Attempt: 1}
	var buf bytes.Buffer
	s := newLogger(meta, &buf, zapcore.InfoLevel).Sugar().With("command", "dial")

	s.Errorf("connect %s: %v", "127.0.0.1:5672", "refused")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["message"] != "connect 127.0.0.1:5672: refused" || entries[0]["command"] != "dial" {
		t.Errorf("entry = %v", entries[0])
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("dropped", map[string]any{"x": 1})
	if l.DebugEnabled() {
		t.Error("nop logger reports debug enabled")
	}
}
