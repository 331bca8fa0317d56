package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

type Fields = logrus.Fields

var base = logrus.New()

func init() {
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetLevel(logrus.InfoLevel)
}

// Init configures the shared logger. Production environments log JSON.
func Init(level, environment string) {
	if environment == "production" {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		base.SetLevel(logrus.InfoLevel)
		base.WithField("log_level", level).Warn("specified invalid log level")
		return
	}
	base.SetLevel(logLevel)
}

func Info(format string, v ...interface{}) {
	base.Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	base.Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	base.Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	base.Warnf(format, v...)
}

func Fatal(format string, v ...interface{}) {
	base.Fatalf(format, v...)
}

// WithFields returns an entry carrying structured fields, e.g. chat and message ids.
func WithFields(fields Fields) *logrus.Entry {
	return base.WithFields(fields)
}

// Logger exposes the underlying logrus logger for adapters that need an io.Writer or hooks.
func Logger() *logrus.Logger {
	return base
}
