package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus logger
type Logger struct {
	*logrus.Logger
	service string
}

// NewLogger creates a JSON logger writing to stdout.
// An empty level falls back to LOG_LEVEL, then to info.
func NewLogger(serviceName, level string) *Logger {
	return newLogger(serviceName, level, os.Stdout)
}

// NewTestLogger discards all output.
func NewTestLogger() *Logger {
	return newLogger("test", "error", io.Discard)
}

func newLogger(serviceName, level string, out io.Writer) *Logger {
	log := logrus.New()

	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	log.SetLevel(ParseLevel(level))

	return &Logger{Logger: log, service: serviceName}
}

// ParseLevel maps debug/info/warn/error onto logrus levels; anything else is info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Service returns an entry carrying the service name.
func (l *Logger) Service() *logrus.Entry {
	return l.WithField("service", l.service)
}

// WithRequestID adds request ID to logger
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.Service().WithField("request_id", requestID)
}
