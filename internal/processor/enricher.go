package processor

import (
	"context"
	"os"

	"github.com/google/uuid"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/model"
)

// Enricher adds metadata to records. Plain text entries pass through untouched so their
// shipped line stays the text itself.
type Enricher struct {
	cfg      config.EnricherConfig
	hostname string
	session  string
}

// NewEnricher creates a new enrichment processor.
func NewEnricher(cfg config.EnricherConfig) *Enricher {
	e := &Enricher{cfg: cfg}

	// Pre-fetch hostname
	if cfg.AddHostname {
		e.hostname, _ = os.Hostname()
	}

	// One session id per process run, so records of a run can be grouped.
	if cfg.AddSession {
		e.session = uuid.NewString()
	}

	return e
}

// Name returns the processor identifier.
func (e *Enricher) Name() string {
	return "enricher"
}

// Session returns the run identifier added to records, or "".
func (e *Enricher) Session() string {
	return e.session
}

// Process enriches the record with additional metadata. Existing fields are never overwritten.
func (e *Enricher) Process(ctx context.Context, entry *model.LogEntry) ([]*model.LogEntry, error) {
	if !e.cfg.Enabled || !entry.IsRecord() {
		return []*model.LogEntry{entry}, nil
	}

	setDefault := func(key string, value any) {
		if _, ok := entry.Fields[key]; !ok {
			entry.Fields[key] = value
		}
	}

	if e.cfg.AddHostname && e.hostname != "" {
		setDefault("hostname", e.hostname)
	}

	if e.session != "" {
		setDefault("session", e.session)
	}

	// Add static labels
	for k, v := range e.cfg.StaticLabels {
		setDefault(k, v)
	}

	return []*model.LogEntry{entry}, nil
}

// WithHostname creates an Enricher that adds a specific hostname.
// Useful for testing or when overriding the detected hostname.
func WithHostname(cfg config.EnricherConfig, hostname string) *Enricher {
	e := NewEnricher(cfg)
	e.hostname = hostname
	return e
}
