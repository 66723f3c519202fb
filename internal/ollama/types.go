// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"strconv"
	"time"
)

// Message represents a chat message in the conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// Options contains model parameters for inference.
type Options struct {
	Temperature float64 `json:"temperature,omitempty"` // 0.0-2.0
	TopP        float64 `json:"top_p,omitempty"`       // 0.0-1.0
	NumPredict  int     `json:"num_predict,omitempty"` // max tokens to generate
}

// PullRequest is the request body for the /api/pull endpoint.
type PullRequest struct {
	Name string `json:"name"`
}

// ChatResponse is the response from a non-streaming /api/chat call.
type ChatResponse struct {
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"created_at"`
	Message         Message   `json:"message"`
	Done            bool      `json:"done"`
	DoneReason      string    `json:"done_reason,omitempty"`
	TotalDuration   int64     `json:"total_duration,omitempty"` // nanoseconds
	PromptEvalCount int       `json:"prompt_eval_count,omitempty"`
	EvalCount       int       `json:"eval_count,omitempty"`
	EvalDuration    int64     `json:"eval_duration,omitempty"` // nanoseconds
}

// TokensPerSecond calculates the generation speed from a response.
func (r *ChatResponse) TokensPerSecond() float64 {
	if r.EvalDuration == 0 {
		return 0
	}
	seconds := float64(r.EvalDuration) / 1e9
	return float64(r.EvalCount) / seconds
}

// ModelInfo contains information about a model available on the server.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
}

// FormatSize formats the model size in human-readable form.
func (m *ModelInfo) FormatSize() string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)

	switch {
	case m.Size >= gb:
		return strconv.FormatFloat(float64(m.Size)/gb, 'f', 1, 64) + " GB"
	case m.Size >= mb:
		return strconv.FormatFloat(float64(m.Size)/mb, 'f', 1, 64) + " MB"
	case m.Size >= kb:
		return strconv.FormatFloat(float64(m.Size)/kb, 'f', 1, 64) + " KB"
	default:
		return strconv.FormatInt(m.Size, 10) + " B"
	}
}

// ListModelsResponse is the response from the /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// StreamChunk represents a single fragment from a streaming response.
type StreamChunk struct {
	// Content carried by this fragment; may be empty on the final chunk.
	Content string

	// Done marks the final chunk of the stream.
	Done       bool
	DoneReason string

	// Model that produced the stream.
	Model string

	// Token counts, populated on the final chunk only.
	PromptTokens     int
	CompletionTokens int
}

// APIError is the error body returned by the server on failures.
type APIError struct {
	Error string `json:"error"`
}
