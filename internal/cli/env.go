// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Resolved invocation environment for qwen-cli commands.
//
// Precedence for every setting: command-line flag > environment variable
// > config file > built-in default. NewEnv resolves the chain once and the
// result is threaded explicitly through handlers; no package holds a
// global config value.

package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/config"
	"github.com/jeranaias/qwen-cli/internal/history"
	"github.com/jeranaias/qwen-cli/internal/logging"
	"github.com/jeranaias/qwen-cli/internal/workspace"
)

// Environment variables honored by every command.
const (
	EnvModel          = "QWEN_MODEL"
	EnvHost           = "QWEN_OLLAMA_HOST"
	EnvConfig         = "QWEN_CONFIG"
	EnvLogDir         = "QWEN_LOG_DIR"
	EnvLogLevel       = "QWEN_LOG_LEVEL"
	EnvLogToConsole   = "QWEN_LOG_TO_CONSOLE"
	EnvMaxMessages    = "QWEN_MAX_MESSAGES"
	EnvHistoryDir     = "QWEN_HISTORY_DIR"
	EnvSessionTitle   = "QWEN_SESSION_TITLE"
	EnvSystem         = "QWEN_SYSTEM"
	EnvHistoryMaxSize = "QWEN_HISTORY_MAX_BYTES"
)

// Env is the resolved environment one command invocation runs in.
type Env struct {
	// Workspace holds the per-user directory layout.
	Workspace *workspace.Workspace

	// Config is the effective configuration: file merged over defaults,
	// then environment overrides, then global flags.
	Config *config.Config

	// ConfigPath is the file Config was loaded from. `config set` and the
	// chat hot-reload watcher operate on this path.
	ConfigPath string

	// Log is the application logger (not the chat transcript).
	Log *zap.Logger

	// RunID tags every log record from this invocation.
	RunID string
}

// NewEnv resolves the workspace, loads and overlays configuration, and
// opens the application logger.
func NewEnv(args Args) (*Env, error) {
	ws, err := workspace.Resolve(args.Dir)
	if err != nil {
		return nil, err
	}

	configPath := args.ConfigPath
	if configPath == "" {
		configPath = os.Getenv(EnvConfig)
	}
	if configPath == "" {
		configPath = ws.ConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	// Global flags win over everything.
	if args.Model != "" {
		cfg.Model = args.Model
	}
	if args.Host != "" {
		cfg.Host = args.Host
	}

	logDir := os.Getenv(EnvLogDir)
	if logDir == "" {
		logDir = ws.LogDir()
	}
	level := os.Getenv(EnvLogLevel)
	if level == "" {
		level = cfg.LoggingLevel
	}
	toConsole := false
	if v := os.Getenv(EnvLogToConsole); v != "" {
		toConsole, _ = ParseBoolString(v)
	}

	runID := uuid.NewString()
	logger, err := logging.New(logging.Options{
		Dir:       logDir,
		Level:     level,
		ToConsole: toConsole,
		RunID:     runID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open application log: %w", err)
	}

	return &Env{
		Workspace:  ws,
		Config:     cfg,
		ConfigPath: configPath,
		Log:        logger,
		RunID:      runID,
	}, nil
}

// applyEnvOverrides overlays QWEN_* variables onto the loaded config.
func applyEnvOverrides(cfg *config.Config) error {
	if v := os.Getenv(EnvModel); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(EnvMaxMessages); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return config.ValidationError{
				Field:   "max_messages",
				Message: fmt.Sprintf("invalid %s value %q, must be a non-negative integer", EnvMaxMessages, v),
			}
		}
		cfg.MaxMessages = n
	}
	if v := os.Getenv(EnvSystem); v != "" {
		cfg.SystemPrompt = v
	}
	if v := os.Getenv(EnvHistoryDir); v != "" {
		cfg.HistoryDir = v
	}
	if v := os.Getenv(EnvSessionTitle); v != "" {
		cfg.Title = v
	}
	return nil
}

// HistoryDir resolves the transcript directory for this invocation:
// --history-dir flag > QWEN_HISTORY_DIR/config history_dir > workspace.
func (e *Env) HistoryDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if e.Config.HistoryDir != "" {
		return e.Config.HistoryDir
	}
	return e.Workspace.HistoryDir()
}

// HistoryMaxBytes returns the transcript rotation threshold, from
// QWEN_HISTORY_MAX_BYTES or the 1 MiB default.
func (e *Env) HistoryMaxBytes() int64 {
	v := os.Getenv(EnvHistoryMaxSize)
	if v == "" {
		return history.DefaultMaxBytes
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return history.DefaultMaxBytes
	}
	return n
}

// Close flushes the application logger.
func (e *Env) Close() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
}
