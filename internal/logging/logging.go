// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileName is the log file written while the TUI owns the terminal.
const FileName = "gradefetch.log"

// Options selects the destination and verbosity.
type Options struct {
	Debug bool
	// Writer receives text logs; ignored when ToFile is set.
	Writer io.Writer
	// ToFile redirects logs to FileName under Dir.
	ToFile bool
	Dir    string
}

// New returns a logger tagged with a fresh invocation id and a closer for
// any opened file. The closer is never nil.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	closer := func() error { return nil }

	if opts.ToFile {
		dir := opts.Dir
		if dir == "" {
			dir = DefaultDir()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, closer, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closer, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closer = f.Close
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("invocation", uuid.NewString()), closer, nil
}

// DefaultDir is the per-user cache directory, falling back to the temp dir.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "gradefetch")
	}
	return filepath.Join(os.TempDir(), "gradefetch")
}
