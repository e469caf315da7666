// Package logger holds the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var levelVar = new(slog.LevelVar)

var L = newLogger(os.Stdout)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar})).With("app", "chatview")
}

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// SetOutput redirects the global logger. The stdio MCP server needs stdout for
// protocol frames, so it points logs at stderr.
func SetOutput(w io.Writer) {
	L = newLogger(w)
}

// Thread returns a logger carrying the thread id attribute.
func Thread(threadID string) *slog.Logger {
	return L.With("thread_id", threadID)
}

// Tool returns a logger for MCP tool calls.
func Tool(name string) *slog.Logger {
	return L.With("tool", name)
}
