package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

func TestNewRequestID(t *testing.T) {
	id := NewRequestID()
	if len(id) != 8 {
		t.Fatalf("expected 8 chars, got %q", id)
	}
	if id == NewRequestID() {
		t.Error("expected distinct request ids")
	}
}

func TestForGameFields(t *testing.T) {
	buf := captureGlobal(t)
	ctx := WithRequestID(context.Background(), "abc12345")

	l := ForGame(ctx, "brave-lion-7")
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["requestId"] != "abc12345" {
		t.Errorf("expected requestId, got %v", entry["requestId"])
	}
	if entry["gameId"] != "brave-lion-7" {
		t.Errorf("expected gameId, got %v", entry["gameId"])
	}
}

func TestForGameFromContext(t *testing.T) {
	buf := captureGlobal(t)
	ctx := WithGameID(context.Background(), "quiet-fox-2")

	l := ForGame(ctx, "")
	l.Info().Msg("hello")

	var entry map[string]any
	json.Unmarshal(buf.Bytes(), &entry)
	if entry["gameId"] != "quiet-fox-2" {
		t.Errorf("expected gameId from context, got %v", entry["gameId"])
	}
	if _, ok := entry["requestId"]; ok {
		t.Error("expected no requestId without one in context")
	}
}

func TestForRequestCarriesPlayer(t *testing.T) {
	buf := captureGlobal(t)
	ctx := WithPlayer(WithRequestID(context.Background(), "r1"), "p-guid")

	l := ForRequest(ctx)
	l.Info().Msg("hello")

	var entry map[string]any
	json.Unmarshal(buf.Bytes(), &entry)
	if entry["playerGuid"] != "p-guid" || entry["requestId"] != "r1" {
		t.Errorf("unexpected fields %v", entry)
	}
}

func TestLogBodyMasksSecret(t *testing.T) {
	buf := &bytes.Buffer{}
	l := zerolog.New(buf).Level(zerolog.DebugLevel)

	LogBody(l, "response", []byte(`{"guid":"g1","secret":"s3cr3t","token":"t"}`))

	if bytes.Contains(buf.Bytes(), []byte("s3cr3t")) {
		t.Fatalf("secret leaked into log: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("g1")) {
		t.Errorf("expected the rest of the body logged: %s", buf.String())
	}
}

func TestLogBodyTruncates(t *testing.T) {
	buf := &bytes.Buffer{}
	l := zerolog.New(buf).Level(zerolog.DebugLevel)

	LogBody(l, "request_body", bytes.Repeat([]byte("x"), maxBodyLog+50))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["truncated"] != true || len(entry["request_body"].(string)) != maxBodyLog {
		t.Errorf("expected a truncated body, got %v", entry["truncated"])
	}
}

func TestLogBodySkippedAboveDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	l := zerolog.New(buf).Level(zerolog.InfoLevel)

	LogBody(l, "response", []byte(`{"ok":true}`))
	LogBody(zerolog.New(buf), "response", nil)
	if buf.Len() != 0 {
		t.Errorf("expected nothing logged, got %s", buf.String())
	}
}

func TestSetupWritesJSON(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	buf := &bytes.Buffer{}
	Setup(buf, zerolog.WarnLevel)
	l := Get()
	l.Info().Msg("dropped")
	l.Warn().Msg("kept")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "kept" || entry["caller"] == nil || entry["time"] == nil {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestCallerColumnWidth(t *testing.T) {
	for _, file := range []string{"/a/b.go", "/x/" + string(bytes.Repeat([]byte("long"), 20)) + ".go"} {
		if got := callerColumn(0, file, 12); len(got) != 30 {
			t.Errorf("callerColumn(%q) = %q, want width 30", file, got)
		}
	}
}
