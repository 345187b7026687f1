// Package logging sets up the process-wide slog logger: human-readable text
// on the console and JSON lines in weekly rotating files.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	current *slog.Logger
	closer  io.Closer = io.NopCloser(nil)
)

// InitLogger installs the process logger and makes it the slog default.
func InitLogger(opts Options) {
	logger, c := NewLogger(opts)

	mu.Lock()
	previous := closer
	current, closer = logger, c
	mu.Unlock()

	_ = previous.Close()
	slog.SetDefault(logger)
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	c := closer
	closer = io.NopCloser(nil)
	mu.Unlock()
	return c.Close()
}

// Logger returns the installed logger, or a stderr text logger before
// InitLogger has run.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return fallback
	}
	return current
}

var fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }
func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
