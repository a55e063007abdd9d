// Package logger provides the module-wide structured logger. It is ambient
// infrastructure: nothing in buffer, bptree, replacer or hashtable depends
// on what gets logged, only on what gets returned.
package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// instance is the shared logger. Packages call the helpers below
// (logger.Debugf, logger.Errorf, ...) or L() rather than logrus directly
// so the formatter/level stay centralized.
var instance = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "15:04:05.000",
		FullTimestamp:   true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// L returns the shared logger.
func L() *logrus.Logger {
	return instance
}

// SetLevel parses a level name ("debug", "info", "warn", "error") and
// applies it; unrecognized names fall back to info.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		instance.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		instance.SetLevel(logrus.WarnLevel)
	case "error":
		instance.SetLevel(logrus.ErrorLevel)
	default:
		instance.SetLevel(logrus.InfoLevel)
	}
}

func Debugf(format string, args ...interface{}) { instance.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { instance.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { instance.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { instance.Errorf(format, args...) }
