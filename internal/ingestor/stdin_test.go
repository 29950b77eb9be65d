package ingestor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/model"
)

func TestStdinIngestor(t *testing.T) {
	input := ":bob!b@h JOIN #go\nline 2\nline 3\n"
	reader := bytes.NewBufferString(input)

	cfg := config.StdinIngestorConfig{Enabled: true}
	ingestor := NewStdinIngestorWithReader(cfg, reader, logging.Discard())

	if ingestor.Name() != "stdin" {
		t.Errorf("expected name 'stdin', got %q", ingestor.Name())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan *model.LogEntry, 10)

	go func() {
		err := ingestor.Start(ctx, out)
		if err != nil && err != context.Canceled {
			t.Errorf("Start failed: %v", err)
		}
	}()

	var entries []*model.LogEntry
	for entry := range out {
		entries = append(entries, entry)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	expected := []string{":bob!b@h JOIN #go", "line 2", "line 3"}
	for i, entry := range entries {
		if entry.Message != expected[i] {
			t.Errorf("entry %d: expected %q, got %q", i, expected[i], entry.Message)
		}
		if entry.Source != "stdin" {
			t.Errorf("entry %d: expected source 'stdin', got %q", i, entry.Source)
		}
		if entry.IsRecord() {
			t.Errorf("entry %d: expected a text entry", i)
		}
	}
}

func TestStdinIngestor_EmptyLines(t *testing.T) {
	input := "line 1\n\nline 2\n"
	reader := bytes.NewBufferString(input)

	cfg := config.StdinIngestorConfig{Enabled: true}
	ingestor := NewStdinIngestorWithReader(cfg, reader, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan *model.LogEntry, 10)

	go func() {
		_ = ingestor.Start(ctx, out)
	}()

	var entries []*model.LogEntry
	for entry := range out {
		entries = append(entries, entry)
	}

	// Empty lines should be skipped
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (empty lines skipped), got %d", len(entries))
	}
}
