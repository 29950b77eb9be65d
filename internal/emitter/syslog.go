package emitter

import (
	"context"
	"sync"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/model"
	"github.com/GabrielNunesIT/logbot/internal/shipper"
)

// SyslogEmitter ships entries to the remote line collectors through a shipper.Shipper.
// Delivery is fire-and-forget: Emit never fails once started.
type SyslogEmitter struct {
	cfg     config.ShipperConfig
	opts    []shipper.Option
	logger  logging.ILogger
	mu      sync.RWMutex
	shipper *shipper.Shipper
}

// NewSyslogEmitter creates a syslog emitter. Shipper options are passed through on Start.
func NewSyslogEmitter(cfg config.ShipperConfig, log logging.ILogger, opts ...shipper.Option) *SyslogEmitter {
	return &SyslogEmitter{
		cfg:    cfg,
		opts:   opts,
		logger: log,
	}
}

// Name returns the emitter identifier.
func (e *SyslogEmitter) Name() string {
	return "syslog"
}

// Start creates the shipper and opens every collector connection.
func (e *SyslogEmitter) Start(ctx context.Context) error {
	s, err := shipper.New(e.cfg, e.logger, e.opts...)
	if err != nil {
		return err
	}
	s.Open()

	e.mu.Lock()
	e.shipper = s
	e.mu.Unlock()
	return nil
}

// Stop tears the collector connections down. Lines still queued are abandoned.
func (e *SyslogEmitter) Stop(ctx context.Context) error {
	e.mu.Lock()
	s := e.shipper
	e.shipper = nil
	e.mu.Unlock()

	if s == nil {
		return nil
	}
	if pending := len(s.Pending()); pending > 0 {
		e.logger.Warningf("stopping with %d undelivered lines", pending)
	}
	return s.Close()
}

// Emit queues the entry for every collector.
func (e *SyslogEmitter) Emit(ctx context.Context, entry *model.LogEntry) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.shipper == nil {
		return ErrNotStarted
	}
	e.shipper.Log(entry)
	return nil
}

// Shipper returns the running shipper, or nil before Start.
func (e *SyslogEmitter) Shipper() *shipper.Shipper {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.shipper
}
