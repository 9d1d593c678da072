package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dshills/vscripting/internal/config"
)

// nopCloser closes nothing.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the application logger. level overrides cfg.Level when
// non-empty. The returned closer closes the log file, if any.
func NewLogger(cfg config.LogConfig, level string, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	if level == "" {
		level = cfg.Level
	}
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	out, closer := stderr, io.Closer(nopCloser{})
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, NewOperationError("open log", cfg.File, err)
		}
		out, closer = f, f
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		h = slog.NewTextHandler(out, opts)
	case "json":
		h = slog.NewJSONHandler(out, opts)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(h).With("app", "vscripting"), closer, nil
}
