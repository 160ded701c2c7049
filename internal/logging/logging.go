// Package logging configures the logrus logger shared by the service binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/carnet-digital/carnet/internal/config"
	"github.com/sirupsen/logrus"
)

// New builds a logger from c. The returned cleanup closes the log file, if any.
func New(c config.Logger) (*logrus.Logger, func(), error) {
	l := logrus.New()
	cleanup, err := Init(l, c)
	if err != nil {
		return nil, nil, err
	}
	return l, cleanup, nil
}

// Init applies level, format and output to l.
func Init(l *logrus.Logger, c config.Logger) (func(), error) {
	level := logrus.InfoLevel
	if c.Level != "" {
		parsed, err := logrus.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("logger.level: %w", err)
		}
		level = parsed
	}
	l.SetLevel(level)

	switch strings.ToLower(c.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("logger.format %q: want text or json", c.Format)
	}

	var file *os.File
	switch strings.ToLower(c.Output) {
	case "", "stdout":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	case "discard":
		l.SetOutput(io.Discard)
	case "file":
		if c.OutputFile == "" {
			return nil, fmt.Errorf("logger.output_file required when logger.output is file")
		}
		if err := os.MkdirAll(filepath.Dir(c.OutputFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(c.OutputFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o640)
		if err != nil {
			return nil, err
		}
		file = f
		l.SetOutput(f)
	default:
		return nil, fmt.Errorf("logger.output %q: want stdout, stderr, file or discard", c.Output)
	}

	return func() {
		if file != nil {
			_ = file.Close()
		}
	}, nil
}
