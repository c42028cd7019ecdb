// Package util provides small cross-cutting helpers shared by the server,
// its device drivers, and its CLI entry point.
package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance used across the server.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLogLevel sets the logging level by name (debug, info, warn, error, ...).
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput sets the log output destination.
func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches the logger to structured JSON output.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns a logger entry with a single field attached.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns a logger entry with multiple fields attached.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithDevice returns a logger entry scoped to a device id.
func WithDevice(deviceID string) *logrus.Entry {
	return Logger.WithField("device_id", deviceID)
}

// WithSession returns a logger entry scoped to a session id.
func WithSession(sessionID string) *logrus.Entry {
	return Logger.WithField("session_id", sessionID)
}

func Debug(args ...interface{})                 { Logger.Debug(args...) }
func Debugf(format string, args ...interface{})  { Logger.Debugf(format, args...) }
func Info(args ...interface{})                   { Logger.Info(args...) }
func Infof(format string, args ...interface{})   { Logger.Infof(format, args...) }
func Warn(args ...interface{})                   { Logger.Warn(args...) }
func Warnf(format string, args ...interface{})   { Logger.Warnf(format, args...) }
func Error(args ...interface{})                  { Logger.Error(args...) }
func Errorf(format string, args ...interface{})  { Logger.Errorf(format, args...) }
func Fatal(args ...interface{})                  { Logger.Fatal(args...) }
func Fatalf(format string, args ...interface{})  { Logger.Fatalf(format, args...) }
