package cli

import (
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// newLogger creates the CLI's diagnostic logger, writing to stderr
func newLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)

	return logger
}

// libraryLogger mirrors the CLI log level for the library packages
func libraryLogger(logger *logrus.Logger) *observability.Logger {
	return observability.NewLogger(observability.ParseLogLevel(logger.GetLevel().String()), stderr)
}
