package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Service string
	Env     string
	Level   string
	Out     io.Writer
}

// New builds the process logger and makes it the logrus standard logger too,
// so packages logging through logrus directly share its settings.
func New(opts Options) *logrus.Entry {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	log := logrus.StandardLogger()
	log.Out = out
	log.Level = parseLevel(opts.Level)
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}

	return log.WithFields(logrus.Fields{
		"service": opts.Service,
		"env":     opts.Env,
	})
}

func parseLevel(lvl string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
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
