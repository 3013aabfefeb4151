package observability

import (
	"log/slog"
	"os"

	"github.com/seismic-sync/catalog-etl/internal/config"
)

// NewLogger builds the process-wide structured logger per cfg.LogFormat and
// cfg.LogLevel. LOG_FORMAT=json selects slog's JSON handler; anything else
// falls back to the text handler.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
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

// Warn logs a warning with the bracketed sigil the original pipeline's
// console output used, so the line stays human-scannable under `| tail -f`
// while the structured fields still carry full detail for aggregators.
func Warn(logger *slog.Logger, msg string, args ...any) {
	logger.Warn("[!] "+msg, args...)
}

// Notice logs an operator-relevant, non-error milestone with the same
// bracketed convention ("[*]").
func Notice(logger *slog.Logger, msg string, args ...any) {
	logger.Info("[*] "+msg, args...)
}
