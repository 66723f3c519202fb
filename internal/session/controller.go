// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the chat session state machine.
package session

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/qwen-cli/internal/history"
	"github.com/jeranaias/qwen-cli/internal/ollama"
)

// =============================================================================
// STATES AND ACTIONS
// =============================================================================

// State identifies where the controller is in its lifecycle.
type State int

const (
	// StateIdle is the initial state, before Start or right after a reset.
	StateIdle State = iota
	// StateAwaitingInput accepts user input.
	StateAwaitingInput
	// StateAwaitingResponse has a user turn in flight to the model.
	StateAwaitingResponse
	// StateTerminated is final; the controller accepts nothing further.
	StateTerminated
)

// String returns the state name for logs and status output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingInput:
		return "awaiting-input"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Action is the controller's verdict on one line of user input.
type Action int

const (
	// ActionIgnore skips blank input or input arriving in the wrong state.
	ActionIgnore Action = iota
	// ActionSend forwards the pending user turn to the model.
	ActionSend
	// ActionReset acknowledges a cleared context.
	ActionReset
	// ActionExit ends the session at the user's request.
	ActionExit
	// ActionTimeout ends a session that sat idle past its timeout.
	ActionTimeout
)

// Exit commands accepted at the prompt.
var exitCommands = map[string]bool{
	"/exit": true,
	":q":    true,
	":quit": true,
}

// namePattern captures the user's name from "my name is X" phrasing.
var namePattern = regexp.MustCompile(`(?i)\bmy\s+name\s+is\s+([a-zA-Z][a-zA-Z\-']*)`)

// =============================================================================
// CONTROLLER
// =============================================================================

// Config holds the controller's fixed parameters.
type Config struct {
	// SystemPrompt is pinned at the head of every outbound message list.
	SystemPrompt string

	// MaxMessages caps retained non-system turns, oldest evicted first.
	// 0 retains nothing between exchanges.
	MaxMessages int

	// IdleTimeout expires sessions idle longer than this. 0 disables.
	IdleTimeout time.Duration
}

// Controller is the chat session state machine. Safe for concurrent use:
// the TUI completes turns from a streaming goroutine while its update loop
// reads state.
type Controller struct {
	mu sync.Mutex

	sessionID    string
	systemPrompt string
	maxMessages  int
	idleTimeout  time.Duration

	state        State
	turns        []history.Turn // completed turns, length never exceeds maxMessages
	pending      *history.Turn  // user turn awaiting a model response
	facts        map[string]string
	startTime    time.Time
	lastActivity time.Time

	// now is the clock; tests substitute a fake.
	now func() time.Time
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	maxMessages := cfg.MaxMessages
	if maxMessages < 0 {
		maxMessages = 0
	}

	c := &Controller{
		sessionID:    "sess_" + time.Now().Format("20060102_150405"),
		systemPrompt: cfg.SystemPrompt,
		maxMessages:  maxMessages,
		idleTimeout:  cfg.IdleTimeout,
		state:        StateIdle,
		facts:        make(map[string]string),
		now:          time.Now,
	}
	c.startTime = c.now()
	c.lastActivity = c.startTime
	return c
}

// Start moves an idle controller to accepting input. Callers invoke it once
// at session start and again after each reset.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		c.state = StateAwaitingInput
		c.lastActivity = c.now()
	}
}

// State returns the current machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the controller's session identifier.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// HandleInput classifies one line of input and advances the machine.
// Returns ActionSend when a user turn is now pending for the model.
func (c *Controller) HandleInput(input string) Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingInput {
		return ActionIgnore
	}

	// An expired session terminates on the next input event rather than
	// interrupting a blocked read.
	if c.idleTimeout > 0 && c.now().Sub(c.lastActivity) > c.idleTimeout {
		c.state = StateTerminated
		return ActionTimeout
	}
	c.lastActivity = c.now()

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ActionIgnore
	}

	if exitCommands[trimmed] {
		c.state = StateTerminated
		return ActionExit
	}

	if trimmed == "/reset" {
		c.turns = nil
		c.pending = nil
		c.facts = make(map[string]string)
		c.state = StateIdle
		return ActionReset
	}

	c.captureFacts(trimmed)

	turn := history.NewTurn(history.RoleUser, input)
	c.pending = &turn
	c.state = StateAwaitingResponse
	return ActionSend
}

// captureFacts records lightweight session facts mentioned in user input.
func (c *Controller) captureFacts(input string) {
	if m := namePattern.FindStringSubmatch(input); m != nil {
		c.facts["name"] = m[1]
	}
}

// PendingTurn returns a copy of the user turn awaiting a response, so the
// caller can log it before the model call.
func (c *Controller) PendingTurn() (history.Turn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return history.Turn{}, false
	}
	return *c.pending, true
}

// Messages builds the outbound message list: the pinned system prompt, a
// session-facts system message when facts exist, completed turns, and the
// pending user turn.
func (c *Controller) Messages() []ollama.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]ollama.Message, 0, len(c.turns)+3)
	msgs = append(msgs, ollama.NewSystemMessage(c.systemPrompt))

	if summary := c.factsSummary(); summary != "" {
		msgs = append(msgs, ollama.NewSystemMessage(summary))
	}

	for _, turn := range c.turns {
		msgs = append(msgs, ollama.Message{Role: turn.Role, Content: turn.Content})
	}
	if c.pending != nil {
		msgs = append(msgs, ollama.Message{Role: c.pending.Role, Content: c.pending.Content})
	}
	return msgs
}

func (c *Controller) factsSummary() string {
	name, ok := c.facts["name"]
	if !ok {
		return ""
	}
	return "Known session facts about the user (use when relevant):\n- User name: " + name
}

// CompleteTurn commits the pending user turn and the assistant's response
// to history, enforcing the cap, and returns the assistant turn for
// transcript logging.
func (c *Controller) CompleteTurn(content string) history.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		c.turns = append(c.turns, *c.pending)
		c.pending = nil
	}
	assistant := history.NewTurn(history.RoleAssistant, content)
	c.turns = append(c.turns, assistant)
	c.trim()

	if c.state == StateAwaitingResponse {
		c.state = StateAwaitingInput
	}
	c.lastActivity = c.now()
	return assistant
}

// FailTurn returns to the prompt after a model error. The user turn stays
// in history so a retry keeps its context.
func (c *Controller) FailTurn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		c.turns = append(c.turns, *c.pending)
		c.pending = nil
		c.trim()
	}
	if c.state == StateAwaitingResponse {
		c.state = StateAwaitingInput
	}
	c.lastActivity = c.now()
}

// Terminate ends the session on end-of-input or an interrupt.
func (c *Controller) Terminate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateTerminated
}

// LoadTurns seeds history from a resumed transcript. The cap applies, so
// only the most recent turns of a long transcript survive.
func (c *Controller) LoadTurns(turns []history.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turns...)
	c.trim()
}

// trim enforces the FIFO cap on completed turns.
func (c *Controller) trim() {
	if len(c.turns) > c.maxMessages {
		c.turns = c.turns[len(c.turns)-c.maxMessages:]
	}
}

// History returns a copy of the completed turns.
func (c *Controller) History() []history.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]history.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Facts returns a copy of the captured session facts.
func (c *Controller) Facts() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.facts))
	for k, v := range c.facts {
		out[k] = v
	}
	return out
}

// =============================================================================
// STATUS
// =============================================================================

// Status is a point-in-time snapshot for display.
type Status struct {
	SessionID string
	State     State
	Turns     int
	Facts     int
	Duration  time.Duration
	IdleTime  time.Duration
}

// GetStatus returns the current session status.
func (c *Controller) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	return Status{
		SessionID: c.sessionID,
		State:     c.state,
		Turns:     len(c.turns),
		Facts:     len(c.facts),
		Duration:  now.Sub(c.startTime),
		IdleTime:  now.Sub(c.lastActivity),
	}
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
