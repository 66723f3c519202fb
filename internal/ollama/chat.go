// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// Chat sends a chat request and returns the complete response (non-streaming).
// The request is bounded by the client's chat timeout.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, opts *Options) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.postChat(ctx, c.httpClient, model, messages, opts, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ChatResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ChatStream sends a streaming chat request and calls the callback for each
// chunk, synchronously and in arrival order. The stream is finite: it ends
// with a chunk whose Done field is set. Cancelling the context stops the
// stream; ChatStream closes the connection and returns.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message, opts *Options, callback StreamCallback) error {
	// No total timeout on the HTTP client for streams; lifetime is
	// governed by the caller's context.
	streamClient := &http.Client{}

	resp, err := c.postChat(ctx, streamClient, model, messages, opts, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := NewStreamReader(resp.Body)
	return reader.Process(ctx, callback)
}

// postChat issues the POST to /api/chat and maps transport and status
// failures to typed errors. On success the caller owns the response body.
func (c *Client) postChat(ctx context.Context, httpClient *http.Client, model string, messages []Message, opts *Options, stream bool) (*http.Response, error) {
	reqBody := ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
		Options:  opts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrNotRunning
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrModelNotFound
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := readAPIError(resp, "chat request failed")
		resp.Body.Close()
		return nil, apiErr
	}

	return resp, nil
}

// readAPIError decodes the server's error body for a non-success status,
// surfacing both the status line and the server's message when present.
func readAPIError(resp *http.Response, action string) *ClientError {
	var apiErr APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: action + ": " + resp.Status + ": " + apiErr.Error,
		}
	}
	return &ClientError{
		Type:    ErrTypeInvalidResponse,
		Message: action + ": " + resp.Status,
	}
}

// decodeJSON decodes a successful response body into v.
func decodeJSON(resp *http.Response, v any) error {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}
