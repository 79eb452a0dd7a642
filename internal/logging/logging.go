// Package logging builds the file-backed slog logger. The TUI owns the
// terminal, so nothing is ever written to stdout or stderr.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type ctxKey struct{}

// New opens path for appending and returns a text logger writing to it.
// When the file cannot be opened the returned logger discards everything,
// and the error is returned so the caller can report it.
func New(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: level}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return Discard(), io.NopCloser(nil), fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return Discard(), io.NopCloser(nil), fmt.Errorf("opening log file: %w", err)
	}

	return slog.New(slog.NewTextHandler(f, opts)), f, nil
}

func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Into stores l in ctx.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored in ctx, or slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
