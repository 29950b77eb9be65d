package model

import (
	"testing"
	"time"
)

func TestNewTextEntry(t *testing.T) {
	entry := NewTextEntry("stdin", "test message")

	if entry.Source != "stdin" {
		t.Errorf("expected source 'stdin', got %q", entry.Source)
	}
	if entry.Message != "test message" {
		t.Errorf("expected message 'test message', got %q", entry.Message)
	}
	if entry.IsRecord() {
		t.Error("text entry should not be a record")
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestNewRecordEntry_NilFields(t *testing.T) {
	entry := NewRecordEntry("irc", nil)

	if !entry.IsRecord() {
		t.Fatal("expected record entry")
	}
	if len(entry.Fields) != 0 {
		t.Errorf("expected empty fields, got %v", entry.Fields)
	}
}

func TestLogEntry_SetPromotesText(t *testing.T) {
	entry := NewTextEntry("stdin", "hello")
	entry.Set("hostname", "box")

	if !entry.IsRecord() {
		t.Fatal("Set should promote the entry to a record")
	}
	if entry.Fields["message"] != "hello" {
		t.Errorf("expected message field to be kept, got %v", entry.Fields["message"])
	}
	if entry.Fields["hostname"] != "box" {
		t.Errorf("expected hostname=box, got %v", entry.Fields["hostname"])
	}
}

func TestLogEntry_Clone(t *testing.T) {
	original := &LogEntry{
		Timestamp: time.Now(),
		Source:    "irc",
		Message:   ":bob!b@host JOIN #go",
		Fields: map[string]any{
			"action":   "join",
			"channels": []string{"#go", "#rust"},
		},
	}

	clone := original.Clone()

	if clone.Source != original.Source || clone.Message != original.Message {
		t.Errorf("expected scalar fields copied, got %+v", clone)
	}

	clone.Fields["new"] = "field"
	if _, exists := original.Fields["new"]; exists {
		t.Error("modifying clone.Fields should not affect original")
	}

	clone.Fields["channels"].([]string)[0] = "#changed"
	if original.Fields["channels"].([]string)[0] != "#go" {
		t.Error("modifying a cloned slice should not affect original")
	}
}

func TestLogEntry_CloneText(t *testing.T) {
	original := NewTextEntry("stdin", "plain")
	clone := original.Clone()

	if clone.IsRecord() {
		t.Error("clone of a text entry should stay text")
	}
}
