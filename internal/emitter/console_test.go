package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/model"
	"github.com/GabrielNunesIT/logbot/internal/testutil"
)

func TestConsoleEmitter_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.ConsoleEmitterConfig{
		Enabled: true,
		Format:  "json",
	}

	emitter := NewConsoleEmitterWithWriter(cfg, &buf, testutil.NewTestLogger())

	if emitter.Name() != "console" {
		t.Errorf("expected name 'console', got %q", emitter.Name())
	}

	entry := &model.LogEntry{
		Timestamp: time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC),
		Source:    "test",
		Fields:    map[string]any{"action": "join", "nick": "bob"},
	}

	err := emitter.Emit(context.Background(), entry)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	output := buf.String()
	if output == "" {
		t.Fatal("expected output, got empty string")
	}

	// Parse JSON output
	var result map[string]any
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if result["source"] != "test" {
		t.Errorf("expected source=test, got %v", result["source"])
	}
	if result["action"] != "join" {
		t.Errorf("expected action=join, got %v", result["action"])
	}
	if result["timestamp"] != "2026-01-18T12:00:00Z" {
		t.Errorf("expected timestamp=2026-01-18T12:00:00Z, got %v", result["timestamp"])
	}
}

func TestConsoleEmitter_Text(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.ConsoleEmitterConfig{
		Enabled: true,
		Format:  "text",
	}

	emitter := NewConsoleEmitterWithWriter(cfg, &buf, testutil.NewTestLogger())

	err := emitter.Emit(context.Background(), model.NewTextEntry("test", "test message"))
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	err = emitter.Emit(context.Background(), model.NewRecordEntry("test", map[string]any{"action": "launch"}))
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	want := "logged: test message\nlogged: {\"action\":\"launch\"}\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}
