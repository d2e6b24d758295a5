package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure NewLogger.
type Options struct {
	Environment string // prod uses JSON output, dev and local use console output
	Level       string // debug, info, warn, error
	File        string // optional path of a rotated JSON log file
}

// NewLogger builds the service logger. The returned AtomicLevel can raise or
// lower the level at runtime.
func NewLogger(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, level, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	var consoleEncoder zapcore.Encoder
	switch opts.Environment {
	case "prod":
		consoleEncoder = zapcore.NewJSONEncoder(fileEncoderConfig())
	case "dev", "local", "":
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	default:
		return nil, level, fmt.Errorf("unknown environment %q for logger", opts.Environment)
	}

	core := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), level)

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), zapcore.AddSync(rotator), level)
		core = zapcore.NewTee(core, fileCore)
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), level, nil
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	return cfg
}
