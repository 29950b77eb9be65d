package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/model"
)

// ConsoleEmitter echoes every logged entry to the operator's terminal.
type ConsoleEmitter struct {
	cfg    config.ConsoleEmitterConfig
	writer io.Writer
	mu     sync.Mutex
	logger logging.ILogger
}

// NewConsoleEmitter creates a console emitter writing to stdout.
func NewConsoleEmitter(cfg config.ConsoleEmitterConfig, log logging.ILogger) *ConsoleEmitter {
	return NewConsoleEmitterWithWriter(cfg, os.Stdout, log)
}

// NewConsoleEmitterWithWriter creates a console emitter with a custom writer (for testing).
func NewConsoleEmitterWithWriter(cfg config.ConsoleEmitterConfig, w io.Writer, log logging.ILogger) *ConsoleEmitter {
	return &ConsoleEmitter{
		cfg:    cfg,
		writer: w,
		logger: log.SubLogger("ConsoleEmitter"),
	}
}

// Name returns the emitter identifier.
func (s *ConsoleEmitter) Name() string {
	return "console"
}

// Start initializes the emitter (no-op for the console).
func (s *ConsoleEmitter) Start(ctx context.Context) error {
	s.logger.Debugf("console emitter started: format=%s", s.cfg.Format)
	return nil
}

// Stop gracefully shuts down the emitter (no-op for the console).
func (s *ConsoleEmitter) Stop(ctx context.Context) error {
	s.logger.Debug("console emitter stopped")
	return nil
}

// Emit writes a log entry to the console.
func (s *ConsoleEmitter) Emit(ctx context.Context, entry *model.LogEntry) error {
	var output []byte
	var err error

	switch s.cfg.Format {
	case "json":
		output, err = marshalDocument(entry, "timestamp")
	default:
		output, err = s.formatText(entry)
	}

	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.writer.Write(append(output, '\n'))
	return err
}

// formatText renders "logged: <text>" or "logged: <record json>".
func (s *ConsoleEmitter) formatText(entry *model.LogEntry) ([]byte, error) {
	if !entry.IsRecord() {
		return []byte(fmt.Sprintf("logged: %s", entry.Message)), nil
	}
	body, err := json.Marshal(entry.Fields)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("logged: %s", body)), nil
}
