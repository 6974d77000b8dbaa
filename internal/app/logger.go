package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's own logger without touching slog.Default.
// Level and format were validated by NewConfig; anything unrecognized falls
// back to info and text.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("component", "repobuild")
}
