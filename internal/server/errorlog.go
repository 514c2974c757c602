package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// ErrorLogger appends failed requests to a JSON lines file.
// A nil *ErrorLogger discards everything.
type ErrorLogger struct {
	f      *os.File
	logger *slog.Logger
}

// NewErrorLogger opens (or creates) path for appending.
func NewErrorLogger(path string) (*ErrorLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create error log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: configured path
	if err != nil {
		return nil, fmt.Errorf("open error log: %w", err)
	}
	return &ErrorLogger{
		f:      f,
		logger: slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelError})),
	}, nil
}

// Log records one failed request.
func (l *ErrorLogger) Log(r *http.Request, code string, err error) {
	if l == nil || err == nil {
		return
	}
	attrs := []slog.Attr{slog.String("error", err.Error()), slog.String("code", code)}
	if r != nil {
		attrs = append(attrs, slog.String("path", r.URL.Path), slog.String("method", r.Method))
	}
	l.logger.LogAttrs(context.Background(), slog.LevelError, "Request failed", attrs...)
}

// Close closes the log file.
func (l *ErrorLogger) Close() error {
	if l == nil {
		return nil
	}
	return l.f.Close()
}
