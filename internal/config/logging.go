package config

import (
	"io"
	"log/slog"

	"git.home.luguber.info/inful/weaving/internal/foundation/normalization"
)

// EnvLogLevel and EnvLogFormat configure logging when no flag does.
const (
	EnvLogLevel  = "WEAVING_LOG_LEVEL"
	EnvLogFormat = "WEAVING_LOG_FORMAT"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

var logLevelNormalizer = normalization.NewNormalizer(map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}, slog.LevelInfo)

var logFormatNormalizer = normalization.NewNormalizer(map[string]LogFormat{
	"text": LogFormatText,
	"json": LogFormatJSON,
}, LogFormatText)

// ParseLogLevel maps a level name to a slog.Level. Empty input is info.
func ParseLogLevel(raw string) (slog.Level, error) {
	return logLevelNormalizer.Parse(raw)
}

// NormalizeLogFormat maps raw onto a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}

// NewLogger builds the process logger.
func NewLogger(w io.Writer, level slog.Level, format LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
