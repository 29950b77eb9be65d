package ingestor

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/model"
)

// StdinIngestor reads log entries from standard input.
type StdinIngestor struct {
	cfg    config.StdinIngestorConfig
	name   string
	reader io.Reader // Allows injection for testing
	logger logging.ILogger
}

// NewStdinIngestor creates a new stdin ingestor.
func NewStdinIngestor(cfg config.StdinIngestorConfig, log logging.ILogger) *StdinIngestor {
	return NewStdinIngestorWithReader(cfg, os.Stdin, log)
}

// NewStdinIngestorWithReader creates a stdin ingestor with a custom reader (for testing).
func NewStdinIngestorWithReader(cfg config.StdinIngestorConfig, reader io.Reader, log logging.ILogger) *StdinIngestor {
	return &StdinIngestor{
		cfg:    cfg,
		name:   "stdin",
		reader: reader,
		logger: log.SubLogger("StdinIngestor"),
	}
}

// Name returns the ingestor identifier.
func (s *StdinIngestor) Name() string {
	return s.name
}

// Start begins reading from stdin and sending entries to the output channel.
func (s *StdinIngestor) Start(ctx context.Context, out chan<- *model.LogEntry) error {
	defer close(out)

	s.logger.Info("reading from stdin")

	scanner := bufio.NewScanner(s.reader)
	// Increase buffer for long lines
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineCount := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			s.logger.Debugf("stdin ingestor stopped: lines_read=%d", lineCount)
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue // Skip empty lines
		}

		lineCount++
		if !send(ctx, out, model.NewTextEntry(s.name, line)) {
			s.logger.Debugf("stdin ingestor stopped: lines_read=%d", lineCount)
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Errorf("stdin read error: %v", err)
		return err
	}

	s.logger.Infof("EOF reached: lines_read=%d", lineCount)
	return nil
}
