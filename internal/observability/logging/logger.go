package logging

import (
	"io"
	"log/slog"
	"strings"
)

type Options struct {
	Service string
	Level   string
	// Format is "json" (default) or "text".
	Format string
}

// New builds the process logger. Processes whose stdout carries a protocol,
// such as the stdio MCP server or evidencectl output, pass os.Stderr.
func New(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.MessageKey {
				a.Key = "event"
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "text") {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	return logger
}

// ParseLevel maps LOG_LEVEL values onto slog levels. Unknown values fall
// back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
