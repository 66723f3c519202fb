// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workspace resolves the directory tree holding qwen-cli state:
// the config file, transcript history, logs, personas, and the response
// cache. Every path derives from a single injectable root, so tests run
// against a temp dir and never touch the user's home.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvHome overrides the default workspace location when set.
const EnvHome = "QWEN_CLI_HOME"

// DefaultDirName is the workspace directory created under the user's home.
const DefaultDirName = ".qwen-cli"

// Workspace is a resolved workspace root.
type Workspace struct {
	root string
}

// Resolve picks the workspace root with the documented precedence:
// explicit override, then $QWEN_CLI_HOME, then ~/.qwen-cli.
func Resolve(override string) (*Workspace, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return nil, fmt.Errorf("could not resolve workspace path: %w", err)
		}
		return &Workspace{root: abs}, nil
	}

	if env := os.Getenv(EnvHome); env != "" {
		return &Workspace{root: env}, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	return &Workspace{root: filepath.Join(home, DefaultDirName)}, nil
}

// New returns a workspace rooted at dir without consulting the environment.
func New(dir string) *Workspace {
	return &Workspace{root: dir}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// ConfigPath returns the path of the JSON config file.
func (w *Workspace) ConfigPath() string {
	return filepath.Join(w.root, "config.json")
}

// HistoryDir returns the directory holding transcript segments.
func (w *Workspace) HistoryDir() string {
	return filepath.Join(w.root, "history")
}

// LogDir returns the directory holding application logs.
func (w *Workspace) LogDir() string {
	return filepath.Join(w.root, "logs")
}

// SystemPromptPath returns the seeded system prompt template file.
func (w *Workspace) SystemPromptPath() string {
	return filepath.Join(w.root, "system_prompt.txt")
}

// PersonasPath returns the user persona presets file.
func (w *Workspace) PersonasPath() string {
	return filepath.Join(w.root, "personas.toml")
}

// CachePath returns the response cache database file.
func (w *Workspace) CachePath() string {
	return filepath.Join(w.root, "cache.db")
}

// ReplHistoryPath returns the interactive prompt history file.
func (w *Workspace) ReplHistoryPath() string {
	return filepath.Join(w.root, "repl_history")
}

// IsInitialized reports whether the workspace has been set up: a config
// file exists at the root.
func (w *Workspace) IsInitialized() bool {
	_, err := os.Stat(w.ConfigPath())
	return err == nil
}

// Init creates the workspace directory tree and seeds the system prompt
// template. Existing files are left alone so re-running init is safe. The
// config file itself is seeded by the config loader on first load.
func (w *Workspace) Init(systemPrompt string) error {
	for _, dir := range []string{w.root, w.HistoryDir(), w.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create workspace directory %s: %w", dir, err)
		}
	}

	path := w.SystemPromptPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(systemPrompt+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to seed system prompt: %w", err)
		}
	}

	return nil
}
