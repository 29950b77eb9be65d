package testutil

import (
	"github.com/GabrielNunesIT/logbot/internal/logging"
)

// NewTestLogger creates a logger that discards output, suitable for tests.
func NewTestLogger() logging.ILogger {
	return logging.Discard()
}
