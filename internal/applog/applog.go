// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package applog configures process-wide structured logging: a zap core
// behind the standard log/slog API, so library code logs through slog.
package applog

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ap-aditya/srchive/pkg/types"
)

// Options controls logger construction.
type Options struct {
	types.LogConfig

	// AddSource records the caller on every entry.
	AddSource bool

	// Output receives log lines. Nil means stderr so command output on
	// stdout stays machine readable.
	Output io.Writer
}

// Init builds a zap logger from opts, installs it as the zap global and the
// slog default, and returns it so the caller can Sync before exit.
func Init(opts Options) *zap.Logger {
	logger := New(opts)
	zap.ReplaceGlobals(logger)
	slog.SetDefault(slog.New(slogzap.Option{
		Level:     ParseLevel(opts.Level),
		Logger:    logger,
		AddSource: opts.AddSource,
	}.NewZapHandler()))
	return logger
}

// New builds a zap logger without touching any globals.
func New(opts Options) *zap.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(opts.Format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), zapLevel(ParseLevel(opts.Level)))

	zopts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if opts.AddSource {
		zopts = append(zopts, zap.AddCaller())
	}
	return zap.New(core, zopts...)
}

// ParseLevel maps debug, warn and error to their slog levels. Anything else
// is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l <= slog.LevelDebug:
		return zapcore.DebugLevel
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
