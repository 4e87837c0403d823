// Package logging builds the process logger: human-readable or JSON records
// on stderr, optionally mirrored as JSON to a size-rotated file.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel parses debug, info, warn or error. An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
}

// Options configures Setup.
type Options struct {
	Level  string
	Format string // text or json
	// File, if set, receives every record as JSON.
	File      string
	MaxSizeMB int
	MaxFiles  int
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// Setup creates a logger from opts. The returned closer releases the log
// file, if any, and is never nil.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var console slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text", "":
		console = slog.NewTextHandler(stderr, handlerOpts)
	case "json":
		console = slog.NewJSONHandler(stderr, handlerOpts)
	default:
		return nil, nil, fmt.Errorf("invalid log format: %s", opts.Format)
	}

	if opts.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	w, err := NewRotatingFileWriter(opts.File, int64(opts.MaxSizeMB)*MB, opts.MaxFiles)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
	}
	file := slog.NewJSONHandler(w, handlerOpts)
	return slog.New(fanout{console, file}), w, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
