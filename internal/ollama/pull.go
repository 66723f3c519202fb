// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// PullProgress is one progress update from a streaming model pull.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// Percent returns download completion as 0-100, or -1 when the update
// carries no byte counts.
func (p PullProgress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// PullCallback is called for each progress update during a pull.
type PullCallback func(progress PullProgress)

// Pull downloads a model onto the server, invoking the callback for each
// progress line. Pulls can take minutes, so the request has no total
// timeout; cancel the context to abort. Malformed progress lines are
// skipped. A progress update whose status names an error fails the pull.
func (c *Client) Pull(ctx context.Context, model string, callback PullCallback) error {
	reqBody := PullRequest{Name: model}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Host+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	pullClient := &http.Client{}
	resp, err := pullClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return context.Canceled
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp, "failed to start model pull")
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		// The server reports failures mid-stream as {"error": "..."}.
		var apiErr APIError
		if err := json.Unmarshal(line, &apiErr); err == nil && apiErr.Error != "" {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "model pull failed: " + apiErr.Error}
		}

		var progress PullProgress
		if err := json.Unmarshal(line, &progress); err != nil {
			continue
		}
		if callback != nil {
			callback(progress)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return &ClientError{Type: ErrTypeConnection, Message: "pull stream interrupted", Cause: err}
	}

	return nil
}
