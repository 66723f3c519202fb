// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with an
// Ollama-compatible model server.
//
// # Key Types
//
//   - Client: HTTP client for health checks, model listing, pulls, and chat
//   - Message: one chat message with a role and content
//   - StreamChunk: one fragment of a streaming chat response
//   - ClientError: typed error with a category for exit-code mapping
//
// # Usage
//
// Create a client and verify the server is reachable:
//
//	client := ollama.NewClient(cfg.Host)
//	if err := client.Ping(ctx); err != nil {
//	    // server not running
//	}
//
// Stream a chat response:
//
//	err := client.ChatStream(ctx, model, messages, opts, func(chunk ollama.StreamChunk) {
//	    fmt.Print(chunk.Content)
//	})
//
// # Errors
//
// Failures carry a category so callers can branch without string matching:
//
//	if ollama.IsModelNotFound(err) {
//	    // offer to pull the model
//	}
package ollama
