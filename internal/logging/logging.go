// Package logging configures the process-wide slog logger. The terminal is
// owned by the TUI, so records go to a file unless another writer is given.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const timeFormat = "2006-01-02 15:04:05.000"

// Options configure Setup.
type Options struct {
	// Path is the log file. Ignored when Writer is set.
	Path   string
	Writer io.Writer
	Level  string
}

// Setup builds a tint handler, installs it as the slog default and returns
// the logger together with a closer for the underlying file.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	w := opts.Writer
	var closer io.Closer = nopCloser{}
	if w == nil {
		if opts.Path == "" {
			return nil, nil, fmt.Errorf("log path is required")
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}

	handler := tint.NewHandler(w, &tint.Options{
		AddSource:  true,
		Level:      ParseLevel(opts.Level),
		TimeFormat: timeFormat,
		NoColor:    !isTerminal(w),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer, nil
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(tint.NewHandler(io.Discard, &tint.Options{Level: slog.LevelError + 1, NoColor: true}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
