// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Keys returns every key accepted by Get and Set, in display order.
// Persona fields use dot notation.
func Keys() []string {
	return []string{
		"assistant_name",
		"user_name",
		"model",
		"host",
		"history_dir",
		"max_messages",
		"system_prompt",
		"title",
		"logging_level",
		"response_format",
		"session_timeout_minutes",
		"temperature",
		"persona.role",
		"persona.tone",
		"persona.style",
		"persona.verbosity",
	}
}

func unknownKeyError(key string) ValidationError {
	return ValidationError{
		Field:   key,
		Message: "unknown key, allowed keys: " + strings.Join(Keys(), ", "),
	}
}

// Get returns the display value of a single configuration key. Unknown keys
// are rejected with a ValidationError naming the allowed key set.
func (c *Config) Get(key string) (string, error) {
	switch normalizeKey(key) {
	case "assistant_name":
		return c.AssistantName, nil
	case "user_name":
		return c.UserName, nil
	case "model":
		return c.Model, nil
	case "host":
		return c.Host, nil
	case "history_dir":
		return c.HistoryDir, nil
	case "max_messages":
		return strconv.Itoa(c.MaxMessages), nil
	case "system_prompt":
		return c.SystemPrompt, nil
	case "title":
		return c.Title, nil
	case "logging_level":
		return c.LoggingLevel, nil
	case "response_format":
		return c.ResponseFormat, nil
	case "session_timeout_minutes":
		return strconv.Itoa(c.SessionTimeoutMinutes), nil
	case "temperature":
		return strconv.FormatFloat(c.Temperature, 'g', -1, 64), nil
	case "persona.role":
		return c.Persona.Role, nil
	case "persona.tone":
		return c.Persona.Tone, nil
	case "persona.style":
		return c.Persona.Style, nil
	case "persona.verbosity":
		return c.Persona.Verbosity, nil
	default:
		return "", unknownKeyError(key)
	}
}

// Set assigns a single configuration key from its string form, validating
// the value for the target field. The record is not persisted; callers
// follow up with Save. Unknown keys are rejected with a ValidationError
// naming the allowed key set.
func (c *Config) Set(key, value string) error {
	switch normalizeKey(key) {
	case "assistant_name":
		c.AssistantName = value
	case "user_name":
		c.UserName = value
	case "model":
		if value == "" {
			return ValidationError{Field: "model", Message: "must not be empty"}
		}
		c.Model = value
	case "host":
		// A bad host would fail validation on every subsequent load,
		// locking the user out of fixing it through set. Reject it here.
		if value == "" {
			return ValidationError{Field: "host", Message: "must not be empty"}
		}
		if u, err := url.Parse(value); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return ValidationError{Field: "host", Message: fmt.Sprintf("invalid URL %q, must be http or https", value)}
		}
		c.Host = value
	case "history_dir":
		c.HistoryDir = value
	case "max_messages":
		n, err := strconv.Atoi(value)
		if err != nil {
			return ValidationError{Field: "max_messages", Message: "must be an integer"}
		}
		if n < 0 {
			return ValidationError{Field: "max_messages", Message: fmt.Sprintf("must be non-negative, got %d", n)}
		}
		c.MaxMessages = n
	case "system_prompt":
		c.SystemPrompt = value
	case "title":
		c.Title = value
	case "logging_level":
		if !validLevels[strings.ToLower(value)] {
			return ValidationError{Field: "logging_level", Message: fmt.Sprintf("invalid level %q, must be one of: debug, info, warn, error", value)}
		}
		c.LoggingLevel = strings.ToLower(value)
	case "response_format":
		if !validFormats[strings.ToLower(value)] {
			return ValidationError{Field: "response_format", Message: fmt.Sprintf("invalid format %q, must be one of: text, markdown, json", value)}
		}
		c.ResponseFormat = strings.ToLower(value)
	case "session_timeout_minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return ValidationError{Field: "session_timeout_minutes", Message: "must be an integer"}
		}
		if n < 0 {
			return ValidationError{Field: "session_timeout_minutes", Message: fmt.Sprintf("must be non-negative, got %d", n)}
		}
		c.SessionTimeoutMinutes = n
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return ValidationError{Field: "temperature", Message: "must be a number"}
		}
		if f < 0 || f > 2 {
			return ValidationError{Field: "temperature", Message: fmt.Sprintf("must be between 0.0 and 2.0, got %v", f)}
		}
		c.Temperature = f
	case "persona.role":
		c.Persona.Role = value
	case "persona.tone":
		c.Persona.Tone = value
	case "persona.style":
		c.Persona.Style = value
	case "persona.verbosity":
		c.Persona.Verbosity = value
	default:
		return unknownKeyError(key)
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
