package emitter

import (
	"context"
	"io"
	"sync"

	"github.com/natefinch/lumberjack"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/model"
	"github.com/GabrielNunesIT/logbot/internal/shipper"
)

// WriterFactory creates a new WriteCloser.
type WriterFactory func(cfg config.ArchiveEmitterConfig) (io.WriteCloser, error)

// ArchiveOption configures the ArchiveEmitter.
type ArchiveOption func(*ArchiveEmitter)

// WithWriterFactory sets a custom factory for creating the writer.
func WithWriterFactory(f WriterFactory) ArchiveOption {
	return func(e *ArchiveEmitter) {
		e.factory = f
	}
}

// ArchiveEmitter keeps a local rotating copy of exactly the lines sent to the collectors.
type ArchiveEmitter struct {
	cfg     config.ArchiveEmitterConfig
	factory WriterFactory
	writer  io.WriteCloser
	mu      sync.Mutex
	logger  logging.ILogger
}

// NewArchiveEmitter creates a new archive emitter.
func NewArchiveEmitter(cfg config.ArchiveEmitterConfig, log logging.ILogger, opts ...ArchiveOption) *ArchiveEmitter {
	e := &ArchiveEmitter{
		cfg:    cfg,
		logger: log.SubLogger("ArchiveEmitter"),
	}

	// Default factory creates lumberjack logger
	e.factory = func(cfg config.ArchiveEmitterConfig) (io.WriteCloser, error) {
		return &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}, nil
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Name returns the emitter identifier.
func (f *ArchiveEmitter) Name() string {
	return "archive"
}

// Start initializes the rotating file writer.
func (f *ArchiveEmitter) Start(ctx context.Context) error {
	w, err := f.factory(f.cfg)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.writer = w
	f.mu.Unlock()

	f.logger.Infof("archiving to %s", f.cfg.Path)
	return nil
}

// Stop closes the file writer.
func (f *ArchiveEmitter) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		return nil
	}
	err := f.writer.Close()
	f.writer = nil
	return err
}

// Emit appends the entry in wire format.
func (f *ArchiveEmitter) Emit(ctx context.Context, entry *model.LogEntry) error {
	line := shipper.FormatLine(entry) + "\n"

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		return ErrNotStarted
	}

	_, err := io.WriteString(f.writer, line)
	return err
}
