// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/jeranaias/qwen-cli/internal/util"
)

// DefaultSystemPrompt seeds both the system_prompt config field and the
// workspace prompt file.
const DefaultSystemPrompt = "You are Qwen CLI running locally via Ollama. Be concise and helpful."

// Config represents the complete qwen-cli configuration.
type Config struct {
	// AssistantName labels model output in interactive sessions.
	AssistantName string `json:"assistant_name"`
	// UserName labels the input prompt in interactive sessions.
	UserName string `json:"user_name"`
	// Model is the model served by the local daemon, e.g. "qwen:latest".
	Model string `json:"model"`
	// Host is the daemon base URL.
	Host string `json:"host"`
	// HistoryDir stores transcript segments. Empty selects the workspace
	// history directory.
	HistoryDir string `json:"history_dir"`
	// MaxMessages caps the in-memory turns kept per session, excluding
	// the pinned system prompt.
	MaxMessages int `json:"max_messages"`
	// SystemPrompt is sent as the first message of every session.
	SystemPrompt string `json:"system_prompt"`
	// Title names transcript segments. Empty falls back to "session".
	Title string `json:"title"`
	// LoggingLevel is the application log level: debug, info, warn, error.
	LoggingLevel string `json:"logging_level"`
	// ResponseFormat controls output rendering: text, markdown, or json.
	ResponseFormat string `json:"response_format"`
	// SessionTimeoutMinutes ends idle interactive sessions. 0 disables.
	SessionTimeoutMinutes int `json:"session_timeout_minutes"`
	// Temperature is the sampling temperature passed to the model.
	Temperature float64 `json:"temperature"`
	// Persona shapes the effective system prompt.
	Persona Persona `json:"persona"`
}

// Persona is the configuration sub-record shaping the system prompt's
// tone, style, and verbosity.
type Persona struct {
	Role      string `json:"role"`
	Tone      string `json:"tone"`
	Style     string `json:"style"`
	Verbosity string `json:"verbosity"`
}

// PromptSuffix renders the persona as directives appended to the system
// prompt. An all-empty persona contributes nothing.
func (p Persona) PromptSuffix() string {
	if p == (Persona{}) {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nPersona:")
	if p.Role != "" {
		b.WriteString(" respond in the role of " + p.Role + ".")
	}
	if p.Tone != "" {
		b.WriteString(" Keep a " + p.Tone + " tone.")
	}
	if p.Style != "" {
		b.WriteString(" Style: " + p.Style + ".")
	}
	if p.Verbosity != "" {
		b.WriteString(" Verbosity: " + p.Verbosity + ".")
	}
	return b.String()
}

// Default returns a Config with the documented default values.
func Default() *Config {
	return &Config{
		AssistantName:         "Qwen",
		UserName:              "You",
		Model:                 "qwen:latest",
		Host:                  "http://localhost:11434",
		HistoryDir:            "",
		MaxMessages:           20,
		SystemPrompt:          DefaultSystemPrompt,
		Title:                 "",
		LoggingLevel:          "info",
		ResponseFormat:        "text",
		SessionTimeoutMinutes: 0,
		Temperature:           0.7,
		Persona: Persona{
			Role:      "assistant",
			Tone:      "neutral",
			Style:     "concise",
			Verbosity: "normal",
		},
	}
}

// EffectiveSystemPrompt combines the configured system prompt with the
// persona directives.
func (c *Config) EffectiveSystemPrompt() string {
	return c.SystemPrompt + c.Persona.PromptSuffix()
}

// ParseError reports malformed configuration on disk. It is fatal at load:
// aborting preserves the user's file instead of silently replacing it.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed config file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads the configuration at path. A partial file is merged over
// defaults. When the file does not exist it is created with default values
// and the defaults are returned. Malformed JSON returns a *ParseError.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create config file: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Config may hold tokens or prompts the user considers private.
	ensureSecurePermissions(path)

	// Unmarshal into the defaults record: fields present in the file
	// overwrite, everything else keeps its default.
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	return cfg, nil
}

// Save persists the whole record to path atomically with 0600 permissions.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	data = append(data, '\n')

	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureSecurePermissions tightens config file permissions to 0600.
func ensureSecurePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm() != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
	}
}

// ValidationError represents a rejected configuration key or value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// IsValidation reports whether err is a configuration validation error.
func IsValidation(err error) bool {
	var ve ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var ves ValidateErrors
	return errors.As(err, &ves)
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validFormats = map[string]bool{
	"text": true, "markdown": true, "json": true,
}

// Validate checks the configuration and returns all violations at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "model",
			Message: "must not be empty",
		})
	}

	if c.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "host",
			Message: "must not be empty",
		})
	} else if u, err := url.Parse(c.Host); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "host",
			Message: fmt.Sprintf("invalid URL %q, must be http or https", c.Host),
		})
	}

	if c.MaxMessages < 0 {
		errs = append(errs, ValidationError{
			Field:   "max_messages",
			Message: fmt.Sprintf("must be non-negative, got %d", c.MaxMessages),
		})
	}

	if !validLevels[strings.ToLower(c.LoggingLevel)] {
		errs = append(errs, ValidationError{
			Field:   "logging_level",
			Message: fmt.Sprintf("invalid level %q, must be one of: debug, info, warn, error", c.LoggingLevel),
		})
	}

	if !validFormats[strings.ToLower(c.ResponseFormat)] {
		errs = append(errs, ValidationError{
			Field:   "response_format",
			Message: fmt.Sprintf("invalid format %q, must be one of: text, markdown, json", c.ResponseFormat),
		})
	}

	if c.SessionTimeoutMinutes < 0 {
		errs = append(errs, ValidationError{
			Field:   "session_timeout_minutes",
			Message: fmt.Sprintf("must be non-negative, got %d", c.SessionTimeoutMinutes),
		})
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %v", c.Temperature),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// String returns the configuration as indented JSON, the same shape as the
// on-disk file.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
