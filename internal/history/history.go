// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists chat transcripts as JSON-lines segment files.
package history

import (
	"strings"
	"time"
	"unicode"
)

// DefaultMaxBytes is the segment rotation threshold when none is configured.
const DefaultMaxBytes int64 = 1 << 20 // 1 MiB

// Turn is one message of a conversation, tagged with its speaker role.
// Immutable once created.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
}

// Speaker roles recognized in transcripts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var validRoles = map[string]bool{
	RoleSystem:    true,
	RoleUser:      true,
	RoleAssistant: true,
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role, content string) Turn {
	return Turn{
		Timestamp: time.Now(),
		Role:      role,
		Content:   content,
	}
}

// SafeTitle maps a session title to its filename form: letters, digits,
// dashes and underscores pass through, everything else becomes a dash.
// An empty result falls back to "session".
func SafeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	safe := strings.Trim(b.String(), "-")
	if safe == "" {
		return "session"
	}
	return safe
}

// ErrSessionNotFound is returned when a transcript file doesn't exist.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = &SessionError{Message: "session not found"}

// SessionError represents a transcript-related error.
type SessionError struct {
	Message string
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing session errors.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
