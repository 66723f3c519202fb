// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stream.go - Token batching and the streaming goroutine bridge.
//
// Tokens arrive far faster than a terminal should repaint. The runner
// forwards each chunk to the program as a message; the model parks them in
// a StreamingBuffer and drains it on a 30fps tick, so rendering cost stays
// flat no matter how fast the model talks.

package tui

import (
	"context"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/qwen-cli/internal/ollama"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

const (
	// streamBatchSize flushes after this many tokens even mid-frame.
	streamBatchSize = 15
	// streamFrameInterval caps repaint frequency (~30fps).
	streamFrameInterval = 33 * time.Millisecond
)

// StreamingBuffer accumulates tokens from the streaming goroutine until the
// render loop drains it. Safe for concurrent use: writes happen on the
// stream goroutine, flushes on the Bubble Tea loop.
type StreamingBuffer struct {
	mu         sync.Mutex
	buf        strings.Builder
	tokenCount int
	lastFlush  time.Time
}

// NewStreamingBuffer creates an empty buffer.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{lastFlush: time.Now()}
}

// Write adds a token. Called from the streaming goroutine.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buf.WriteString(token)
	sb.tokenCount++
}

// Flush returns the accumulated content when either the batch size or the
// frame interval has been reached, and (content, false) otherwise.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buf.Len() == 0 {
		return "", false
	}
	if sb.tokenCount < streamBatchSize && time.Since(sb.lastFlush) < streamFrameInterval {
		return "", false
	}
	return sb.drainLocked(), true
}

// ForceFlush drains everything regardless of thresholds. Called when the
// stream completes so no tail tokens are lost.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buf.Len() == 0 {
		return "", false
	}
	return sb.drainLocked(), true
}

// Reset discards buffered content, for stream cancellation.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buf.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

func (sb *StreamingBuffer) drainLocked() string {
	content := sb.buf.String()
	sb.buf.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content
}

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner executes model calls on a goroutine and reports progress to
// the Bubble Tea program as messages. The program reference is set after
// tea.NewProgram and guarded so an early stream cannot race it.
type StreamRunner struct {
	mu      sync.Mutex
	program *tea.Program
	client  *ollama.Client
}

// NewStreamRunner creates a runner for the given client.
func NewStreamRunner(client *ollama.Client) *StreamRunner {
	return &StreamRunner{client: client}
}

// SetProgram attaches the running program. Must be called before Run.
func (r *StreamRunner) SetProgram(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.program = p
}

func (r *StreamRunner) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Run streams one exchange and sends StreamStartMsg, StreamTokenMsg per
// fragment, then StreamDoneMsg or StreamErrorMsg. Call on a goroutine.
func (r *StreamRunner) Run(ctx context.Context, model string, messages []ollama.Message, opts *ollama.Options) {
	r.send(StreamStartMsg{At: time.Now()})

	start := time.Now()
	var completionTokens int
	err := r.client.ChatStream(ctx, model, messages, opts, func(chunk ollama.StreamChunk) {
		if chunk.Content != "" {
			r.send(StreamTokenMsg{Token: chunk.Content})
		}
		if chunk.Done {
			completionTokens = chunk.CompletionTokens
		}
	})
	if err != nil {
		r.send(StreamErrorMsg{Err: err})
		return
	}

	r.send(StreamDoneMsg{
		CompletionTokens: completionTokens,
		Duration:         time.Since(start),
	})
}

// =============================================================================
// CANCELLATION
// =============================================================================

// cancelState holds the in-flight stream's cancel function. It lives behind
// a pointer because Bubble Tea copies the model on every update.
type cancelState struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func newCancelState() *cancelState {
	return &cancelState{}
}

// Set stores the cancel function for the active stream.
func (c *cancelState) Set(fn context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = fn
}

// Cancel aborts the active stream. Safe to call repeatedly.
func (c *cancelState) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
