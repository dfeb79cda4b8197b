// Package observability configures the process-wide structured logger. One
// slog.Logger backs every log line the runtime writes; a redacting handler
// keeps provider credentials and other secrets out of the stream, which
// matters here because raw provider errors and tool output get logged
// verbatim.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string

	// Format is "json" or "text". JSON for piped output, text for a
	// terminal session.
	Format string

	// Output defaults to os.Stderr, keeping stdout free for --generate-doc
	// output.
	Output io.Writer

	// RedactPatterns extends the built-in secret patterns.
	RedactPatterns []string
}

// defaultRedactPatterns covers the credential shapes that can leak through
// provider error messages and tool output.
var defaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey)[\s:=]+["']?([a-zA-Z0-9_\-]{16,})["']?`,
	`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-\.]{16,})`,
	`(?i)(secret|password|passwd|pwd)[\s:=]+["']?([^\s"']{8,})["']?`,
	`sk-ant-[a-zA-Z0-9_-]{95,}`,
	`sk-[a-zA-Z0-9]{48,}`,
	`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`,
}

const redactedPlaceholder = "[REDACTED]"

// redactingHandler wraps another handler and scrubs secret-shaped values
// from the message and every top-level string attribute, whether attached
// to the record or bound with WithAttrs. Values nested inside groups are
// passed through unchanged.
type redactingHandler struct {
	inner    slog.Handler
	patterns []*regexp.Regexp
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, h.redact(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		if a.Value.Kind() == slog.KindString {
			a.Value = slog.StringValue(h.redact(a.Value.String()))
		}
		clean.AddAttrs(a)
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Value.Kind() == slog.KindString {
			a.Value = slog.StringValue(h.redact(a.Value.String()))
		}
		clean = append(clean, a)
	}
	return &redactingHandler{inner: h.inner.WithAttrs(clean), patterns: h.patterns}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name), patterns: h.patterns}
}

func (h *redactingHandler) redact(s string) string {
	for _, re := range h.patterns {
		s = re.ReplaceAllString(s, redactedPlaceholder)
	}
	return s
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a redacting structured logger.
func NewLogger(cfg LogConfig) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var inner slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		inner = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		inner = slog.NewTextHandler(cfg.Output, opts)
	}

	patterns := make([]*regexp.Regexp, 0, len(defaultRedactPatterns)+len(cfg.RedactPatterns))
	for _, p := range append(append([]string{}, defaultRedactPatterns...), cfg.RedactPatterns...) {
		if re, err := regexp.Compile(p); err == nil {
			patterns = append(patterns, re)
		}
	}

	return slog.New(&redactingHandler{inner: inner, patterns: patterns})
}

// Setup installs the configured logger as the process default.
func Setup(cfg LogConfig) {
	slog.SetDefault(NewLogger(cfg))
}
