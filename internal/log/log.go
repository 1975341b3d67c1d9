package log

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/config"
)

// NewSlogLogger creates a new slog logger with the given configuration and installs it as the default.
func NewSlogLogger(cfg config.Log) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.Stderr {
		out = os.Stderr
	}

	log := slog.New(newHandler(out, cfg))
	slog.SetDefault(log)

	return log
}

// NewDiscardLogger returns a logger that drops every record, for tests and tools.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newHandler(out io.Writer, cfg config.Log) slog.Handler {
	var handler slog.Handler

	if cfg.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:     cfg.Level,
			AddSource: cfg.AddSource,
		})
	} else {
		handler = tint.NewHandler(out, &tint.Options{
			Level:      cfg.Level,
			AddSource:  cfg.AddSource,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Value.Kind() == slog.KindAny {
					if _, ok := a.Value.Any().(error); ok {
						return tint.Attr(9, a)
					}
				}
				return a
			},
		})
	}

	return newEnrichedHandler(handler)
}
