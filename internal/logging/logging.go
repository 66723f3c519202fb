// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application logger: structured JSON records
// appended to a size-rotated file under the workspace log directory, with
// an optional human-readable tee to stderr. User-facing output never goes
// through here; commands print directly.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the rotated application log file.
const LogFileName = "qwen-cli.log"

const (
	maxSizeMB  = 5
	maxBackups = 5
)

// Options configures the logger. The caller resolves environment overrides;
// this package reads nothing ambient.
type Options struct {
	// Dir is the directory receiving the log file.
	Dir string

	// Level is one of debug, info, warn, warning, error. Unrecognized or
	// empty values fall back to info.
	Level string

	// ToConsole tees records to stderr in console format.
	ToConsole bool

	// RunID tags every record from this invocation.
	RunID string
}

// New builds the application logger. The log directory is created when
// missing.
func New(opts Options) (*zap.Logger, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, LogFileName),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}

	level := ParseLevel(opts.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level),
	}

	if opts.ToConsole {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.AddSync(os.Stderr),
			level,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if opts.RunID != "" {
		logger = logger.With(zap.String("run_id", opts.RunID))
	}
	return logger, nil
}

// ParseLevel maps a level name to its zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
