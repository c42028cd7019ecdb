package util

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func saveLoggerState() (io.Writer, logrus.Level, logrus.Formatter) {
	return Logger.Out, Logger.Level, Logger.Formatter
}

func restoreLoggerState(out io.Writer, level logrus.Level, formatter logrus.Formatter) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
	Logger.SetFormatter(formatter)
}

func TestSetLogLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestSetLogOutput(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	Info("test message")

	if buf.Len() == 0 {
		t.Error("expected output to be written to buffer")
	}
}

func TestSetJSONFormat(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetJSONFormat()
	Info("test json")

	output := buf.String()
	if len(output) == 0 || output[0] != '{' {
		t.Errorf("expected JSON output starting with '{', got: %s", output)
	}
}

func TestWithFieldHelpers(t *testing.T) {
	if WithField("key", "value") == nil {
		t.Error("WithField should return non-nil entry")
	}
	if WithFields(map[string]interface{}{"a": 1}) == nil {
		t.Error("WithFields should return non-nil entry")
	}
	if WithDevice("s1") == nil {
		t.Error("WithDevice should return non-nil entry")
	}
	if WithSession("abc123") == nil {
		t.Error("WithSession should return non-nil entry")
	}
}

func TestLevelWrappers(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogLevel("debug")

	Debug("d")
	Debugf("d%d", 1)
	Info("i")
	Infof("i%d", 1)
	Warn("w")
	Warnf("w%d", 1)
	Error("e")
	Errorf("e%d", 1)

	if buf.Len() == 0 {
		t.Error("expected log output from level wrappers")
	}
}
