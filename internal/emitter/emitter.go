// Package emitter defines the interface and implementations for log destinations.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/GabrielNunesIT/logbot/internal/model"
)

// ErrNotStarted is returned by Emit before Start succeeded.
var ErrNotStarted = errors.New("emitter not started")

// Emitter defines the contract for log destinations.
// Each emitter receives processed log entries and writes them to a destination.
type Emitter interface {
	// Start initializes the emitter (connections, buffers, etc.).
	// Called once before Emit is called.
	Start(ctx context.Context) error

	// Emit sends a log entry to the destination.
	// Must be safe to call concurrently.
	Emit(ctx context.Context, entry *model.LogEntry) error

	// Stop gracefully shuts down the emitter.
	// Should flush any buffered data before returning.
	Stop(ctx context.Context) error

	// Name returns a unique identifier for this emitter.
	Name() string
}

// document flattens an entry into a JSON document under timeKey.
// Record fields win over the envelope keys except timeKey.
func document(entry *model.LogEntry, timeKey string) map[string]any {
	doc := map[string]any{
		"source": entry.Source,
	}
	if entry.IsRecord() {
		for k, v := range entry.Fields {
			doc[k] = v
		}
	} else {
		doc["message"] = entry.Message
	}
	doc[timeKey] = entry.Timestamp.Format(time.RFC3339Nano)
	return doc
}

func marshalDocument(entry *model.LogEntry, timeKey string) ([]byte, error) {
	return json.Marshal(document(entry, timeKey))
}
