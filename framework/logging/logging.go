// Package logging builds the application's zap logger from config.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/km-arc/go-ioc/framework/config"
)

// New returns a logger at cfg.Log.Level. Local and debug environments get a
// console encoder, everything else JSON. When cfg.Log.File is set output goes
// to that file, rotated at cfg.Log.MaxSizeMB.
func New(cfg *config.Config) *zap.Logger {
	return zap.New(newCore(cfg, writer(cfg)), zap.AddCaller())
}

// NewWithWriter is New with output sent to w.
func NewWithWriter(cfg *config.Config, w io.Writer) *zap.Logger {
	return zap.New(newCore(cfg, zapcore.AddSync(w)), zap.AddCaller())
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func newCore(cfg *config.Config, ws zapcore.WriteSyncer) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if development(cfg) {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	return zapcore.NewCore(encoder, ws, zap.NewAtomicLevelAt(ParseLevel(cfg.Log.Level)))
}

func writer(cfg *config.Config) zapcore.WriteSyncer {
	if cfg.Log.File == "" {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename: cfg.Log.File,
		MaxSize:  cfg.Log.MaxSizeMB,
		Compress: true,
	})
}

func development(cfg *config.Config) bool {
	return cfg.App.Env == "local" || cfg.App.Debug
}
