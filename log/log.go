// Package log provides the driver's diagnostic-stream logger (spec
// §4.7/§6's "diagnostic stream"), wrapping logrus the way the teacher's
// log package does, with its debug env var renamed to this driver's
// own verbosity knob and level taken from the session's -V count
// instead of a boolean.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var level logrus.Level = logrus.WarnLevel

func init() {
	if n, err := strconv.Atoi(os.Getenv("SOX_VERBOSITY")); err == nil {
		level = levelFor(n)
	}
}

// levelFor maps the driver's -V verbosity count (0-4, per the
// original's VERBOSITY levels) onto a logrus level.
func levelFor(v int) logrus.Level {
	switch {
	case v <= 0:
		return logrus.ErrorLevel
	case v == 1:
		return logrus.WarnLevel
	case v == 2:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// GetLogger returns a new logger at the process's configured
// verbosity level.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	return l
}

// SetVerbosity overrides the level used by subsequently created
// loggers, letting a session.Option drive it instead of the env var.
func SetVerbosity(v int) { level = levelFor(v) }
