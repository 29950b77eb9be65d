package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/model"
)

// Parser turns structured text lines into records.
type Parser struct {
	cfg      config.RecordParserConfig
	patterns []*regexp.Regexp
}

// NewParser creates a new parsing processor.
func NewParser(cfg config.RecordParserConfig) (*Parser, error) {
	p := &Parser{cfg: cfg}

	// Compile regex patterns
	for _, pattern := range cfg.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
		}
		p.patterns = append(p.patterns, re)
	}

	return p, nil
}

// Name returns the processor identifier.
func (p *Parser) Name() string {
	return "parser"
}

// Process converts the entry to a record when its message is a JSON object or matches a
// pattern. Other entries pass through unchanged.
func (p *Parser) Process(ctx context.Context, entry *model.LogEntry) ([]*model.LogEntry, error) {
	if !p.cfg.Enabled || entry.IsRecord() {
		return []*model.LogEntry{entry}, nil
	}

	// Try JSON parsing first if enabled
	if p.cfg.JSONAutoDetect && p.tryParseJSON(entry) {
		return []*model.LogEntry{entry}, nil
	}

	for _, re := range p.patterns {
		if p.tryParseRegex(entry, re) {
			break
		}
	}

	return []*model.LogEntry{entry}, nil
}

// tryParseJSON attempts to parse the message as a JSON object.
func (p *Parser) tryParseJSON(entry *model.LogEntry) bool {
	raw := strings.TrimSpace(entry.Message)
	if !strings.HasPrefix(raw, "{") {
		return false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return false
	}
	if data == nil {
		data = make(map[string]any)
	}

	entry.Fields = data
	return true
}

// tryParseRegex attempts to extract named groups from a regex pattern.
func (p *Parser) tryParseRegex(entry *model.LogEntry, re *regexp.Regexp) bool {
	names := re.SubexpNames()
	if len(names) <= 1 {
		return false // No named groups
	}

	matches := re.FindStringSubmatch(entry.Message)
	if matches == nil {
		return false
	}

	fields := make(map[string]any, len(names))
	for i, name := range names {
		if i == 0 || name == "" {
			continue // Skip full match and unnamed groups
		}
		fields[name] = matches[i]
	}

	entry.Fields = fields
	return true
}
