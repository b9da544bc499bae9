package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns JSON logger writing to w (stderr when nil).
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h)
}

// ParseLevel converts a textual level; empty or unknown values fall back to warn.
func ParseLevel(level string) slog.Level {
	parsed := slog.LevelWarn
	if level != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err == nil {
			parsed = l
		}
	}
	return parsed
}
