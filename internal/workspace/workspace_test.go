// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Run("explicit override wins", func(t *testing.T) {
		t.Setenv(EnvHome, "/env/path")

		dir := t.TempDir()
		ws, err := Resolve(dir)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if ws.Root() != dir {
			t.Errorf("Root() = %q, want %q", ws.Root(), dir)
		}
	})

	t.Run("environment variable", func(t *testing.T) {
		t.Setenv(EnvHome, "/env/path")

		ws, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if ws.Root() != "/env/path" {
			t.Errorf("Root() = %q, want /env/path", ws.Root())
		}
	})

	t.Run("home directory default", func(t *testing.T) {
		t.Setenv(EnvHome, "")

		ws, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if filepath.Base(ws.Root()) != DefaultDirName {
			t.Errorf("Root() = %q, want base %q", ws.Root(), DefaultDirName)
		}
	})
}

func TestPaths(t *testing.T) {
	ws := New("/ws")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"config", ws.ConfigPath(), "/ws/config.json"},
		{"history", ws.HistoryDir(), "/ws/history"},
		{"logs", ws.LogDir(), "/ws/logs"},
		{"system prompt", ws.SystemPromptPath(), "/ws/system_prompt.txt"},
		{"personas", ws.PersonasPath(), "/ws/personas.toml"},
		{"cache", ws.CachePath(), "/ws/cache.db"},
		{"repl history", ws.ReplHistoryPath(), "/ws/repl_history"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != filepath.FromSlash(tt.want) {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	ws := New(filepath.Join(t.TempDir(), "qwen"))

	if ws.IsInitialized() {
		t.Error("IsInitialized() = true before init")
	}

	if err := ws.Init("Be concise."); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	for _, dir := range []string{ws.Root(), ws.HistoryDir(), ws.LogDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s missing after init: %v", dir, err)
		}
	}

	data, err := os.ReadFile(ws.SystemPromptPath())
	if err != nil {
		t.Fatalf("system prompt not seeded: %v", err)
	}
	if !strings.Contains(string(data), "Be concise.") {
		t.Errorf("system prompt = %q", data)
	}

	// Init leaves existing files alone.
	if err := os.WriteFile(ws.SystemPromptPath(), []byte("edited"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ws.Init("Be concise."); err != nil {
		t.Fatalf("re-running Init() error: %v", err)
	}
	data, err = os.ReadFile(ws.SystemPromptPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "edited" {
		t.Errorf("re-init overwrote system prompt: %q", data)
	}

	// Initialized once the config loader has written the config file.
	if err := os.WriteFile(ws.ConfigPath(), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if !ws.IsInitialized() {
		t.Error("IsInitialized() = false after config exists")
	}
}
