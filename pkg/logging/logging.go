package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileLogger returns a logger writing JSON lines to the given path and
// plain text to stderr. The caller owns the returned file handle.
func FileLogger(level logrus.Level, logPath string) (*os.File, *logrus.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(io.Discard)

	logger.AddHook(&writerHook{
		Writer:    f,
		Formatter: &logrus.JSONFormatter{},
		LogLevels: logrus.AllLevels,
	})
	logger.AddHook(&writerHook{
		Writer:    os.Stderr,
		Formatter: &logrus.TextFormatter{FullTimestamp: true},
		LogLevels: logrus.AllLevels,
	})
	return f, logger, nil
}

// ConsoleLogger returns a stderr-only logger, used by tests and one-off
// tooling where a log file is unwanted.
func ConsoleLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

type writerHook struct {
	Writer    io.Writer
	Formatter logrus.Formatter
	LogLevels []logrus.Level
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.Formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.Writer.Write(line)
	return err
}

func (h *writerHook) Levels() []logrus.Level {
	return h.LogLevels
}
