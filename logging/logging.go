// Package logging builds the zap loggers used by the capture loop and the
// command line tools.
package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLoggerConfig returns the console logger config with colored levels and
// stack traces disabled
func NewLoggerConfig(level zapcore.Level) zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      zapcore.OmitKey,
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// ParseLevel converts a level name such as "debug" or "warn" into a zap level.
// An empty name means info.
func ParseLevel(name string) (zapcore.Level, error) {

	if strings.TrimSpace(name) == "" {
		return zapcore.InfoLevel, nil
	}

	var lvl zapcore.Level

	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return zapcore.InfoLevel, errors.Wrapf(err, "invalid log level %q", name)
	}

	return lvl, nil
}

// NewLogger returns a named sugared logger writing to stdout at the given level
func NewLogger(name, level string) (*zap.SugaredLogger, error) {

	lvl, err := ParseLevel(level)

	if err != nil {
		return nil, err
	}

	logger, err := NewLoggerConfig(lvl).Build()

	if err != nil {
		return nil, errors.Wrap(err, "error building logger")
	}

	return logger.Sugar().Named(name), nil
}
