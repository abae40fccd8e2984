// Package logger builds the process-wide zap logger from configuration.
package logger

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"pdfqa/internal/config"
)

// New builds a logger. Output goes to a rotated file when cfg.File is set,
// otherwise to fallback; a nil fallback discards everything that is not
// written to a file (the TUI owns the terminal).
func New(cfg config.LogConfig, fallback io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	var sink zapcore.WriteSyncer
	switch {
	case cfg.File != "":
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.FileSizeMB,
			MaxBackups: cfg.FileCount,
			MaxAge:     cfg.KeepDays,
		})
	case fallback != nil:
		sink = zapcore.Lock(zapcore.AddSync(fallback))
	default:
		return zap.NewNop(), nil
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)
	if cfg.Development {
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if cfg.File != "" {
			devCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(devCfg)
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewCore(encoder, sink, level), opts...), nil
}
