package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogger configures both the zerolog default provider and the slog
// default logger. format is "json" or "console"; unknown levels fall back to info.
func SetupLogger(loglevel, format string) {
	SetupLoggerTo(os.Stderr, loglevel, format)
}

// SetupLoggerTo is SetupLogger with an explicit destination.
func SetupLoggerTo(w io.Writer, loglevel, format string) {
	level, _ := ParseLevel(loglevel)
	Configure(w, level, format)

	ops := slog.HandlerOptions{
		AddSource: level <= LevelDebug,
		Level:     ToLogLevel(loglevel),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "level"
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	}
	var handler slog.Handler
	if format == "console" {
		handler = slog.NewTextHandler(w, &ops)
	} else {
		handler = slog.NewJSONHandler(w, &ops)
	}
	slog.SetDefault(slog.New(WrapByErrFmtHandler(handler)))
}

// ToLogLevel maps a configuration string to a slog level.
func ToLogLevel(level string) slog.Level {
	l, _ := ParseLevel(level)
	return slog.Level(l)
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
