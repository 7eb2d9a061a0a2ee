package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// configureLogger sets the process-wide slog handler from environment:
// SUPOCLIP_LOG_LEVEL (debug|info|warn|error) and SUPOCLIP_LOG_FORMAT
// (text|json).
func configureLogger() {
	level := parseLogLevel(os.Getenv("SUPOCLIP_LOG_LEVEL"))
	options := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				if ts, ok := attr.Value.Any().(time.Time); ok {
					attr.Value = slog.StringValue(ts.UTC().Format(time.RFC3339))
				}
			}
			return attr
		},
	}

	var handler slog.Handler
	format := strings.ToLower(strings.TrimSpace(os.Getenv("SUPOCLIP_LOG_FORMAT")))
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, options)
	} else {
		handler = slog.NewTextHandler(os.Stderr, options)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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

// logInfof bridges the pipeline's printf-style progress callback onto slog.
func logInfof(format string, args ...any) {
	slog.Info(fmt.Sprintf(format, args...))
}
