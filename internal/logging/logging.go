// ABOUTME: zap logger construction for CLI and TUI modes
// ABOUTME: TUI output goes to a debug.log file so it never corrupts the terminal

package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/markalston/record-admin/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFileName is the file written under the config directory in TUI mode
const LogFileName = "debug.log"

// New builds a logger writing to w with the configured level and encoding
func New(cfg config.LogConfig, w zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), w, level)
	return zap.New(core), nil
}

// NewStderr builds the CLI logger. Commands print their own results, so the
// level is raised to at least warn unless debug logging was requested.
func NewStderr(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Level != "debug" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		if level < zapcore.WarnLevel {
			cfg.Level = "warn"
		}
	}
	return New(cfg, zapcore.Lock(os.Stderr))
}

// NewFile builds a logger appending to <configDir>/debug.log. The returned
// close function flushes and closes the file. An empty configDir yields a
// no-op logger.
func NewFile(cfg config.LogConfig, configDir string) (*zap.Logger, func(), error) {
	if configDir == "" {
		return zap.NewNop(), func() {}, nil
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(configDir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger, err := New(cfg, zapcore.AddSync(f))
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return logger, func() {
		_ = logger.Sync()
		f.Close()
	}, nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "json" {
		return zapcore.NewJSONEncoder(encoderCfg)
	}
	return zapcore.NewConsoleEncoder(encoderCfg)
}
