// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	log "log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

var levels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func ParseLevel(s string) (log.Level, error) {
	lvl, ok := levels[s]
	if !ok {
		return log.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

type Options struct {
	Level   string
	File    string // rotating JSON file; console when empty
	Session string
	Console io.Writer
}

// Setup installs the default logger and returns a closer for the log file.
func Setup(opts Options) (io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var (
		h      log.Handler
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("log dir: %w", err)
		}
		w := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    32, // MB
			MaxBackups: 3,
			MaxAge:     14,
		}
		h = log.NewJSONHandler(w, &log.HandlerOptions{Level: lvl})
		closer = w
	} else {
		out := opts.Console
		if out == nil {
			out = os.Stdout
		}
		h = tint.NewHandler(out, &tint.Options{Level: lvl})
	}

	l := log.New(h)
	if opts.Session != "" {
		l = l.With("session", opts.Session)
	}
	log.SetDefault(l)

	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
