package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// InitLogger configures the process logger. Unknown levels fall back to info.
func InitLogger(level string) *logrus.Logger {
	Log = New(level)
	return Log
}

// New builds a JSON logger writing to stdout.
func New(level string) *logrus.Logger {
	l := logrus.New()

	// Output to stdout instead of the default stderr
	l.Out = os.Stdout

	l.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return l
}
