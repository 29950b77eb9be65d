package cli

import (
	"github.com/GabrielNunesIT/logbot/internal/logging"
)

// SetupLogging creates and configures a logger with the specified level.
// Returns the configured logger for dependency injection.
func SetupLogging(level string) *logging.Logger {
	return logging.Setup(level)
}
