// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for all CLI commands in qwen-cli.
//
// STANDARDIZED PATTERN:
//   - Handlers ALWAYS return errors (never print and return nil)
//   - main decides how to display them and maps them to exit codes
//   - Structured error types carry the category; GetExitCode reads it

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/qwen-cli/internal/config"
	"github.com/jeranaias/qwen-cli/internal/history"
	"github.com/jeranaias/qwen-cli/internal/ollama"
)

// Exit codes for the different error categories.
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file error
	ExitConfigError = 3
	// ExitNetworkError indicates the model endpoint is unreachable
	ExitNetworkError = 5
	// ExitNotFoundError indicates a model or resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// UsageError represents invalid command-line usage: a missing argument,
// an unknown subcommand, or a flag value outside its allowed set.
type UsageError struct {
	Message string
	Hint    string // example of valid usage (optional)
}

func (e *UsageError) Error() string {
	if e.Hint != "" {
		return e.Message + "\nUsage: " + e.Hint
	}
	return e.Message
}

// NewUsageError creates a usage error without a hint.
func NewUsageError(format string, a ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, a...)}
}

// NewUsageErrorWithHint creates a usage error carrying an example invocation.
func NewUsageErrorWithHint(message, hint string) error {
	return &UsageError{Message: message, Hint: hint}
}

// GetExitCode determines the exit code for an error based on its type.
// Typed errors from the config, ollama, and history packages map to their
// categories; everything else is a general error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	// Config value validation is a usage problem (bad key, bad value);
	// a file that does not parse is a config problem.
	if config.IsValidation(err) {
		return ExitUsageError
	}
	var parseErr *config.ParseError
	if errors.As(err, &parseErr) {
		return ExitConfigError
	}

	var clientErr *ollama.ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ollama.ErrTypeNotRunning, ollama.ErrTypeConnection:
			return ExitNetworkError
		case ollama.ErrTypeTimeout:
			return ExitTimeoutError
		case ollama.ErrTypeModelNotFound:
			return ExitNotFoundError
		default:
			return ExitGeneralError
		}
	}

	if errors.Is(err, history.ErrSessionNotFound) {
		return ExitNotFoundError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeoutError
	}

	// Fallback categorization by message for errors that arrive untyped.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "config"):
		return ExitConfigError
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "unreachable"):
		return ExitNetworkError
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "deadline exceeded"):
		return ExitTimeoutError
	case strings.Contains(msg, "not found"):
		return ExitNotFoundError
	}

	return ExitGeneralError
}

// WrapError wraps an error with additional context as it bubbles up.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
