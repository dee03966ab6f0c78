package contract

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields represents structured logging fields.
type Fields = logrus.Fields

// logger is the process logger. Results go to stdout, so logs always go to stderr.
var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Logger returns the shared logger.
func Logger() *logrus.Logger {
	return logger
}

// SetLogLevel changes the verbosity of the shared logger.
func SetLogLevel(level string) error {
	if strings.TrimSpace(level) == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)
	return nil
}

// SetLogOutput redirects the shared logger.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	logger.WithError(err).Fatal(msg)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	logger.WithError(err).Warn(msg)
}

// LogInfo logs an informational message with optional fields.
func LogInfo(msg string, fields Fields) {
	logger.WithFields(fields).Info(msg)
}

// LogDebug logs a debug message with optional fields.
func LogDebug(msg string, fields Fields) {
	logger.WithFields(fields).Debug(msg)
}
