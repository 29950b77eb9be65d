// Package processor defines the interface and implementations for log transformation.
package processor

import (
	"context"

	"github.com/GabrielNunesIT/logbot/internal/model"
)

// Processor defines the contract for log transformations.
// A processor may modify the entry in place, replace it, expand it into several entries
// or drop it by returning none.
type Processor interface {
	// Process transforms a LogEntry.
	// Returns an error if processing fails critically (entry should be dropped).
	Process(ctx context.Context, entry *model.LogEntry) ([]*model.LogEntry, error)

	// Name returns a unique identifier for this processor.
	Name() string
}

// Chain composes multiple processors into a sequential pipeline.
type Chain struct {
	processors []Processor
}

// NewChain creates a new processor chain.
func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

// Process applies all processors in sequence, feeding every output of one stage into the next.
func (c *Chain) Process(ctx context.Context, entry *model.LogEntry) ([]*model.LogEntry, error) {
	entries := []*model.LogEntry{entry}
	for _, p := range c.processors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		next := make([]*model.LogEntry, 0, len(entries))
		for _, e := range entries {
			out, err := p.Process(ctx, e)
			if err != nil {
				return nil, err
			}
			next = append(next, out...)
		}
		entries = next
		if len(entries) == 0 {
			break
		}
	}
	return entries, nil
}

// Name returns the chain identifier.
func (c *Chain) Name() string {
	return "chain"
}

// Add appends a processor to the chain.
func (c *Chain) Add(p Processor) {
	c.processors = append(c.processors, p)
}

// Len returns the number of processors in the chain.
func (c *Chain) Len() int {
	return len(c.processors)
}
