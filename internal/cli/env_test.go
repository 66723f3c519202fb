// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Environment resolution tests: the flag > env var > config file > default
// precedence chain, and the config subcommands that read and edit the file.

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/qwen-cli/internal/config"
	"github.com/jeranaias/qwen-cli/internal/history"
)

// newTestEnv builds an Env rooted in a temp workspace. Tests that set
// QWEN_* variables must use t.Setenv before calling this.
func newTestEnv(t *testing.T, args Args) *Env {
	t.Helper()
	if args.Dir == "" {
		args.Dir = t.TempDir()
	}
	env, err := NewEnv(args)
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func TestNewEnv_DefaultsAndConfigCreation(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, Args{Dir: dir})

	require.Equal(t, "qwen:latest", env.Config.Model)
	require.Equal(t, "http://localhost:11434", env.Config.Host)
	require.Equal(t, 20, env.Config.MaxMessages)

	// First load materializes the config file with private permissions.
	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewEnv_Precedence(t *testing.T) {
	dir := t.TempDir()

	// Config file says model A.
	fileCfg := config.Default()
	fileCfg.Model = "from-file:latest"
	require.NoError(t, fileCfg.Save(filepath.Join(dir, "config.json")))

	t.Run("file value wins over default", func(t *testing.T) {
		env := newTestEnv(t, Args{Dir: dir})
		require.Equal(t, "from-file:latest", env.Config.Model)
	})

	t.Run("env var wins over file", func(t *testing.T) {
		t.Setenv(EnvModel, "from-env:latest")
		env := newTestEnv(t, Args{Dir: dir})
		require.Equal(t, "from-env:latest", env.Config.Model)
	})

	t.Run("flag wins over env var and file", func(t *testing.T) {
		t.Setenv(EnvModel, "from-env:latest")
		env := newTestEnv(t, Args{Dir: dir, Model: "from-flag:latest"})
		require.Equal(t, "from-flag:latest", env.Config.Model)
	})
}

func TestNewEnv_EnvOverrides(t *testing.T) {
	t.Run("max messages", func(t *testing.T) {
		t.Setenv(EnvMaxMessages, "5")
		env := newTestEnv(t, Args{})
		require.Equal(t, 5, env.Config.MaxMessages)
	})

	t.Run("invalid max messages rejected", func(t *testing.T) {
		t.Setenv(EnvMaxMessages, "several")
		_, err := NewEnv(Args{Dir: t.TempDir()})
		require.Error(t, err)
		require.Equal(t, ExitUsageError, GetExitCode(err))
	})

	t.Run("system prompt and title", func(t *testing.T) {
		t.Setenv(EnvSystem, "You are a pirate.")
		t.Setenv(EnvSessionTitle, "plunder")
		env := newTestEnv(t, Args{})
		require.Equal(t, "You are a pirate.", env.Config.SystemPrompt)
		require.Equal(t, "plunder", env.Config.Title)
	})
}

func TestEnv_HistoryDir(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, Args{Dir: dir})

	require.Equal(t, filepath.Join(dir, "history"), env.HistoryDir(""))

	env.Config.HistoryDir = "/tmp/custom-hist"
	require.Equal(t, "/tmp/custom-hist", env.HistoryDir(""))

	require.Equal(t, "/tmp/flag-hist", env.HistoryDir("/tmp/flag-hist"))
}

func TestEnv_HistoryMaxBytes(t *testing.T) {
	env := newTestEnv(t, Args{})

	require.Equal(t, history.DefaultMaxBytes, env.HistoryMaxBytes())

	t.Setenv(EnvHistoryMaxSize, "4096")
	require.Equal(t, int64(4096), env.HistoryMaxBytes())

	t.Setenv(EnvHistoryMaxSize, "not-a-number")
	require.Equal(t, history.DefaultMaxBytes, env.HistoryMaxBytes())

	t.Setenv(EnvHistoryMaxSize, "-1")
	require.Equal(t, history.DefaultMaxBytes, env.HistoryMaxBytes())
}

// =============================================================================
// CONFIG COMMAND TESTS
// =============================================================================

func TestHandleConfig_SetPersistsToFile(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, Args{Dir: dir})

	err := HandleConfig(env, Args{Raw: []string{"set", "temperature", "0.9"}})
	require.NoError(t, err)

	onDisk, err := config.Load(env.ConfigPath)
	require.NoError(t, err)
	require.Equal(t, 0.9, onDisk.Temperature)
}

// An override active in this process must not leak into the file when an
// unrelated key is set.
func TestHandleConfig_SetDoesNotPersistOverrides(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, Args{Dir: dir, Model: "override:latest"})

	require.NoError(t, HandleConfig(env, Args{Raw: []string{"set", "user_name", "Sam"}}))

	onDisk, err := config.Load(env.ConfigPath)
	require.NoError(t, err)
	require.Equal(t, "Sam", onDisk.UserName)
	require.Equal(t, "qwen:latest", onDisk.Model, "flag override must not be written back")
}

func TestHandleConfig_SetMultiWordValue(t *testing.T) {
	env := newTestEnv(t, Args{})

	err := HandleConfig(env, Args{Raw: []string{"set", "system_prompt", "You", "are", "terse."}})
	require.NoError(t, err)

	onDisk, err := config.Load(env.ConfigPath)
	require.NoError(t, err)
	require.Equal(t, "You are terse.", onDisk.SystemPrompt)
}

func TestHandleConfig_Errors(t *testing.T) {
	env := newTestEnv(t, Args{})

	tests := []struct {
		name string
		raw  []string
	}{
		{"set without value", []string{"set", "model"}},
		{"set unknown key", []string{"set", "nonsense", "v"}},
		{"set invalid value", []string{"set", "temperature", "11"}},
		{"get unknown key", []string{"get", "nonsense"}},
		{"get without key", []string{"get"}},
		{"unknown subcommand", []string{"explode"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HandleConfig(env, Args{Raw: tt.raw})
			require.Error(t, err)
			require.Equal(t, ExitUsageError, GetExitCode(err), "error: %v", err)
		})
	}
}

func TestHandleConfig_GetAndPath(t *testing.T) {
	env := newTestEnv(t, Args{})

	require.NoError(t, HandleConfig(env, Args{Raw: []string{"get", "model"}}))
	require.NoError(t, HandleConfig(env, Args{Raw: []string{"path"}}))
	require.NoError(t, HandleConfig(env, Args{Raw: []string{"list"}}))
	require.NoError(t, HandleConfig(env, Args{Raw: nil}))
}
