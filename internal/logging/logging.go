// Package logging provides structured logging setup for slidenotes.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup initializes the default slog logger.
// Dev mode uses human-readable text at debug level; otherwise JSON at info.
// Logs go to stderr, or to a rotating file when logFile is set.
func Setup(devMode bool, logFile string) {
	slog.SetDefault(slog.New(NewHandler(Writer(logFile), devMode)))
}

// NewHandler returns the handler Setup installs, writing to w.
func NewHandler(w io.Writer, devMode bool) slog.Handler {
	if devMode {
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
}

// Writer returns stderr, or a size-rotated file writer for logFile.
func Writer(logFile string) io.Writer {
	if logFile == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
}
