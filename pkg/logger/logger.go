package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Every entry carries the service name.
func New(service, level, format string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if format == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return l.WithField("service", service)
}
