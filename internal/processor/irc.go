package processor

import (
	"context"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/irc"
	"github.com/GabrielNunesIT/logbot/internal/model"
)

// IRCParser converts raw IRC protocol lines into event records.
// It keeps a names cache, so one instance must only see the lines of one connection.
type IRCParser struct {
	cfg     config.IRCParserConfig
	tracker *irc.Tracker
}

// NewIRCParser creates an IRC parser for the given server name.
func NewIRCParser(cfg config.IRCParserConfig, server string) *IRCParser {
	return &IRCParser{
		cfg:     cfg,
		tracker: irc.NewTracker(server),
	}
}

// Name returns the processor identifier.
func (p *IRCParser) Name() string {
	return "irc"
}

// Process replaces a protocol line with one record per event it carries. Lines that are not
// channel activity are dropped, or kept as text when KeepUnknown is set.
func (p *IRCParser) Process(ctx context.Context, entry *model.LogEntry) ([]*model.LogEntry, error) {
	if !p.cfg.Enabled || entry.IsRecord() {
		return []*model.LogEntry{entry}, nil
	}

	var events []irc.Event
	if msg, err := irc.ParseMessage(entry.Message); err == nil {
		events = p.tracker.Handle(msg)
	}

	if len(events) == 0 {
		if p.cfg.KeepUnknown && entry.Message != "" {
			return []*model.LogEntry{entry}, nil
		}
		return nil, nil
	}

	out := make([]*model.LogEntry, 0, len(events))
	for _, ev := range events {
		rec := model.NewRecordEntry(entry.Source, ev.Record())
		rec.Timestamp = entry.Timestamp
		rec.Message = entry.Message
		out = append(out, rec)
	}
	return out, nil
}
