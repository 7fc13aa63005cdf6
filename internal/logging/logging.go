// Package logging sets up structured JSON logging.
//
// Once a session starts, stderr belongs to the wrapped program's screen, so
// the logger writes to a file under the state directory instead. Attribute
// keys that look like credentials are redacted.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// sensitiveKeys are attribute-key substrings that get redacted.
var sensitiveKeys = []string{
	"api_key",
	"apikey",
	"token",
	"secret",
	"password",
	"passphrase",
}

// redactingHandler wraps a slog.Handler, replacing credential-shaped
// attribute values with a placeholder.
type redactingHandler struct {
	inner slog.Handler
}

func (h redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h redactingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	return redactingHandler{inner: h.inner.WithAttrs(clean)}
}

func (h redactingHandler) WithGroup(name string) slog.Handler {
	return redactingHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		clean := make([]slog.Attr, len(attrs))
		for i, inner := range attrs {
			clean[i] = redactAttr(inner)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}
	return a
}

// ParseLevel maps a config level string to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs the default logger writing JSON lines to the given file.
// If the file cannot be opened (or path is empty), logging is discarded
// rather than scribbled over the session's screen. The returned closer
// flushes and closes the log file.
func Setup(level, path string) (io.Closer, error) {
	var w io.Writer = io.Discard
	var closer io.Closer

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, err
		}
		w = f
		closer = f
	}

	handler := redactingHandler{inner: slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})}
	slog.SetDefault(slog.New(handler))

	if closer == nil {
		closer = nopCloser{}
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
