// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/tripkeeper/internal/model"
)

// Configure applies the level and format from cfg to the standard logrus
// logger and returns it with a "process" field attached.
func Configure(cfg model.LogConfig, out io.Writer, process string) (*logrus.Entry, error) {
	logger := logrus.StandardLogger()
	if err := apply(logger, cfg, out); err != nil {
		return nil, err
	}
	return logger.WithField("process", process), nil
}

func apply(logger *logrus.Logger, cfg model.LogConfig, out io.Writer) error {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if out != nil {
		logger.SetOutput(out)
	}
	return nil
}
