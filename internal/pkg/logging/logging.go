package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samirrijal/mapsurvey/internal/pkg/config"
)

// ParseLevel maps "debug", "warn" or "error" to a slog level. Anything else,
// including "", is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewHandler builds a text or JSON handler (JSON unless format is "text").
func NewHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// Setup installs the default slog logger writing to stdout.
func Setup(cfg config.LogConfig) {
	slog.SetDefault(slog.New(NewHandler(os.Stdout, cfg)))
}
