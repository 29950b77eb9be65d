// Package model defines the core data structures used throughout logbot.
package model

import (
	"time"
)

// LogEntry is a single loggable payload flowing from sources to emitters.
// It is either a plain text line or a structured record; Fields being non-nil marks a record.
type LogEntry struct {
	// Timestamp is when the entry was created.
	Timestamp time.Time

	// Source identifies which source produced this entry.
	Source string

	// Message holds the text of a plain entry, or the raw input a record was parsed from.
	Message string

	// Fields holds the structured record. Values must be JSON-compatible.
	Fields map[string]any
}

// NewTextEntry creates a plain text entry stamped with the current time.
func NewTextEntry(source, message string) *LogEntry {
	return &LogEntry{
		Timestamp: time.Now(),
		Source:    source,
		Message:   message,
	}
}

// NewRecordEntry creates a structured entry stamped with the current time.
// A nil fields map is replaced by an empty one so the entry stays a record.
func NewRecordEntry(source string, fields map[string]any) *LogEntry {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &LogEntry{
		Timestamp: time.Now(),
		Source:    source,
		Fields:    fields,
	}
}

// IsRecord reports whether the entry carries structured fields.
func (e *LogEntry) IsRecord() bool {
	return e.Fields != nil
}

// Set stores a field, promoting a text entry to a record that keeps its message.
func (e *LogEntry) Set(key string, value any) {
	if e.Fields == nil {
		e.Fields = map[string]any{"message": e.Message}
	}
	e.Fields[key] = value
}

// Clone creates a deep copy of the entry.
// Fan-out hands each emitter its own copy.
func (e *LogEntry) Clone() *LogEntry {
	clone := &LogEntry{
		Timestamp: e.Timestamp,
		Source:    e.Source,
		Message:   e.Message,
	}
	if e.Fields != nil {
		clone.Fields = make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			clone.Fields[k] = cloneValue(v)
		}
	}
	return clone
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, s := range t {
			m[k] = s
		}
		return m
	default:
		return v
	}
}
