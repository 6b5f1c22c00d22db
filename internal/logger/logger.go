// Package logger provides the process-wide structured logger used across the engine.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// L is the global logger instance. Call Init once at startup, before any
// package below reaches for L.
var L = logrus.New()

// Init configures the global logger's level and formatter.
// Call this once at application startup, after loading config.
func Init(levelStr string) {
	level, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		level = logrus.InfoLevel
		L.Warnf("invalid log level %q, defaulting to info", levelStr)
	}

	L.SetLevel(level)
	L.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
	L.SetOutput(os.Stdout)
	L.WithField("level", level.String()).Info("logger initialized")
}
