// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Model != "qwen:latest" {
		t.Errorf("Model = %q, want %q", cfg.Model, "qwen:latest")
	}
	if cfg.Host != "http://localhost:11434" {
		t.Errorf("Host = %q, want %q", cfg.Host, "http://localhost:11434")
	}
	if cfg.MaxMessages != 20 {
		t.Errorf("MaxMessages = %d, want 20", cfg.MaxMessages)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Temperature)
	}
	if cfg.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("SystemPrompt = %q, want default prompt", cfg.SystemPrompt)
	}
	if cfg.LoggingLevel != "info" || cfg.ResponseFormat != "text" {
		t.Errorf("LoggingLevel/ResponseFormat = %q/%q, want info/text", cfg.LoggingLevel, cfg.ResponseFormat)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("absent file creates defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if diff := cmp.Diff(Default(), cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file was not created: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
		}
	})

	t.Run("partial file merges over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		data := `{"model": "llama3.2:1b", "max_messages": 5}`
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}

		want := Default()
		want.Model = "llama3.2:1b"
		want.MaxMessages = 5
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("malformed json is a parse error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}

		_, err := Load(path)
		if err == nil {
			t.Fatal("Load() expected error for malformed file")
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want *ParseError", err)
		}
		if pe.Path != path {
			t.Errorf("ParseError.Path = %q, want %q", pe.Path, path)
		}
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte(`{"temperature": 5.0}`), 0o600); err != nil {
			t.Fatal(err)
		}

		_, err := Load(path)
		if err == nil {
			t.Fatal("Load() expected validation error")
		}
		if !IsValidation(err) {
			t.Errorf("IsValidation() = false for %v", err)
		}
	})

	t.Run("loose permissions tightened", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte(`{"model": "qwen:latest"}`), 0o644); err != nil {
			t.Fatal(err)
		}

		if _, err := Load(path); err != nil {
			t.Fatalf("Load() error: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
		}
	})
}

// TestRoundTrip sets every supported key, persists the record, and reads it
// back through a fresh load. Values must survive unchanged.
func TestRoundTrip(t *testing.T) {
	samples := map[string]string{
		"assistant_name":          "Nova",
		"user_name":               "Sam",
		"model":                   "llama3.2:1b",
		"host":                    "http://127.0.0.1:11500",
		"history_dir":             "/tmp/qwen-history",
		"max_messages":            "8",
		"system_prompt":           "Answer briefly.",
		"title":                   "standup",
		"logging_level":           "debug",
		"response_format":         "markdown",
		"session_timeout_minutes": "30",
		"temperature":             "0.2",
		"persona.role":            "reviewer",
		"persona.tone":            "direct",
		"persona.style":           "terse",
		"persona.verbosity":       "low",
	}

	for _, key := range Keys() {
		value, ok := samples[key]
		if !ok {
			t.Fatalf("no sample value for key %q", key)
		}

		t.Run(key, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")

			cfg := Default()
			if err := cfg.Set(key, value); err != nil {
				t.Fatalf("Set(%q, %q) error: %v", key, value, err)
			}
			if err := cfg.Save(path); err != nil {
				t.Fatalf("Save() error: %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			got, err := loaded.Get(key)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", key, err)
			}
			if got != value {
				t.Errorf("Get(%q) = %q after reload, want %q", key, got, value)
			}
		})
	}
}

func TestSetValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"non-integer max_messages", "max_messages", "abc", "must be an integer"},
		{"negative max_messages", "max_messages", "-1", "must be non-negative"},
		{"non-integer timeout", "session_timeout_minutes", "soon", "must be an integer"},
		{"non-numeric temperature", "temperature", "warm", "must be a number"},
		{"temperature above range", "temperature", "2.5", "between 0.0 and 2.0"},
		{"temperature below range", "temperature", "-0.1", "between 0.0 and 2.0"},
		{"unknown logging level", "logging_level", "loud", "invalid level"},
		{"unknown response format", "response_format", "yaml", "invalid format"},
		{"empty model", "model", "", "must not be empty"},
		{"empty host", "host", "", "must not be empty"},
		{"non-http host", "host", "ftp://localhost:11434", "must be http or https"},
		{"unknown key", "favorite_color", "blue", "allowed keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.Set(tt.key, tt.value)
			if err == nil {
				t.Fatalf("Set(%q, %q) expected error", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
			if !IsValidation(err) {
				t.Errorf("IsValidation() = false for %v", err)
			}
		})
	}
}

func TestGet(t *testing.T) {
	cfg := Default()

	got, err := cfg.Get("model")
	if err != nil {
		t.Fatalf("Get(model) error: %v", err)
	}
	if got != "qwen:latest" {
		t.Errorf("Get(model) = %q, want %q", got, "qwen:latest")
	}

	// Keys are case-insensitive.
	if _, err := cfg.Get("MODEL"); err != nil {
		t.Errorf("Get(MODEL) error: %v", err)
	}

	// Rejections name the full allowed key set.
	_, err = cfg.Get("nope")
	if err == nil {
		t.Fatal("Get(nope) expected error")
	}
	for _, key := range Keys() {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("unknown-key error does not mention %q: %v", key, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErrs int
	}{
		{"defaults pass", func(c *Config) {}, 0},
		{"empty model", func(c *Config) { c.Model = "" }, 1},
		{"non-http host", func(c *Config) { c.Host = "ftp://localhost:11434" }, 1},
		{"unparseable host", func(c *Config) { c.Host = "://" }, 1},
		{"negative max_messages", func(c *Config) { c.MaxMessages = -3 }, 1},
		{"bad logging level", func(c *Config) { c.LoggingLevel = "loud" }, 1},
		{"bad response format", func(c *Config) { c.ResponseFormat = "yaml" }, 1},
		{"negative timeout", func(c *Config) { c.SessionTimeoutMinutes = -1 }, 1},
		{"temperature out of range", func(c *Config) { c.Temperature = 3.0 }, 1},
		{"multiple failures collected", func(c *Config) {
			c.Model = ""
			c.Temperature = -1
			c.LoggingLevel = "loud"
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErrs == 0 {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}

			var ves ValidateErrors
			if !errors.As(err, &ves) {
				t.Fatalf("error = %v, want ValidateErrors", err)
			}
			if len(ves) != tt.wantErrs {
				t.Errorf("got %d validation errors, want %d: %v", len(ves), tt.wantErrs, ves)
			}
		})
	}
}

func TestEffectiveSystemPrompt(t *testing.T) {
	cfg := Default()
	got := cfg.EffectiveSystemPrompt()
	if !strings.HasPrefix(got, DefaultSystemPrompt) {
		t.Errorf("prompt does not start with the configured system prompt: %q", got)
	}
	if !strings.Contains(got, "Persona:") {
		t.Errorf("prompt missing persona directives: %q", got)
	}

	cfg.Persona = Persona{}
	if got := cfg.EffectiveSystemPrompt(); got != cfg.SystemPrompt {
		t.Errorf("empty persona should contribute nothing, got %q", got)
	}
}

func TestPersonaPromptSuffix(t *testing.T) {
	tests := []struct {
		name    string
		persona Persona
		want    []string
	}{
		{"empty", Persona{}, nil},
		{"role only", Persona{Role: "tutor"}, []string{"role of tutor"}},
		{
			"all fields",
			Persona{Role: "reviewer", Tone: "direct", Style: "terse", Verbosity: "low"},
			[]string{"role of reviewer", "direct tone", "Style: terse", "Verbosity: low"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.persona.PromptSuffix()
			if len(tt.want) == 0 {
				if got != "" {
					t.Errorf("PromptSuffix() = %q, want empty", got)
				}
				return
			}
			for _, fragment := range tt.want {
				if !strings.Contains(got, fragment) {
					t.Errorf("PromptSuffix() = %q, missing %q", got, fragment)
				}
			}
		})
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch() error: %v", err)
	}

	// Saves go through an atomic rename; the watcher must still see them.
	cfg.Model = "llama3.2:1b"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the config change")
	}
}
