// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/qwen-cli/internal/history"
)

func newTestController(cfg Config) *Controller {
	c := NewController(cfg)
	c.Start()
	return c
}

func TestLifecycle(t *testing.T) {
	c := NewController(Config{SystemPrompt: "be brief", MaxMessages: 20})

	if c.State() != StateIdle {
		t.Errorf("initial state = %v, want idle", c.State())
	}

	c.Start()
	if c.State() != StateAwaitingInput {
		t.Errorf("state after Start = %v, want awaiting-input", c.State())
	}

	if got := c.HandleInput("hello"); got != ActionSend {
		t.Fatalf("HandleInput = %v, want ActionSend", got)
	}
	if c.State() != StateAwaitingResponse {
		t.Errorf("state = %v, want awaiting-response", c.State())
	}

	c.CompleteTurn("hi there")
	if c.State() != StateAwaitingInput {
		t.Errorf("state after CompleteTurn = %v, want awaiting-input", c.State())
	}

	if got := c.HandleInput("/exit"); got != ActionExit {
		t.Fatalf("HandleInput(/exit) = %v, want ActionExit", got)
	}
	if c.State() != StateTerminated {
		t.Errorf("state = %v, want terminated", c.State())
	}

	// Terminated controllers accept nothing further.
	if got := c.HandleInput("anything"); got != ActionIgnore {
		t.Errorf("HandleInput after terminate = %v, want ActionIgnore", got)
	}
}

func TestExitCommands(t *testing.T) {
	for _, cmd := range []string{"/exit", ":q", ":quit"} {
		t.Run(cmd, func(t *testing.T) {
			c := newTestController(Config{SystemPrompt: "s"})
			if got := c.HandleInput(cmd); got != ActionExit {
				t.Errorf("HandleInput(%q) = %v, want ActionExit", cmd, got)
			}
		})
	}
}

func TestEmptyInputIgnored(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s"})

	for _, input := range []string{"", "   ", "\t"} {
		if got := c.HandleInput(input); got != ActionIgnore {
			t.Errorf("HandleInput(%q) = %v, want ActionIgnore", input, got)
		}
	}
	if c.State() != StateAwaitingInput {
		t.Errorf("state = %v, want awaiting-input", c.State())
	}
}

func TestReset(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s", MaxMessages: 20})

	c.HandleInput("Hi, my name is Ada")
	c.CompleteTurn("Hello Ada")

	if len(c.History()) != 2 || len(c.Facts()) != 1 {
		t.Fatalf("History/Facts = %d/%d before reset, want 2/1", len(c.History()), len(c.Facts()))
	}

	if got := c.HandleInput("/reset"); got != ActionReset {
		t.Fatalf("HandleInput(/reset) = %v, want ActionReset", got)
	}
	if c.State() != StateIdle {
		t.Errorf("state after reset = %v, want idle", c.State())
	}
	if len(c.History()) != 0 {
		t.Errorf("history not cleared: %d turns", len(c.History()))
	}
	if len(c.Facts()) != 0 {
		t.Errorf("facts not cleared: %v", c.Facts())
	}

	// The loop restarts the machine after a reset.
	c.Start()
	if got := c.HandleInput("again"); got != ActionSend {
		t.Errorf("HandleInput after reset+start = %v, want ActionSend", got)
	}
}

func TestResetThenExit(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s", MaxMessages: 20})

	if got := c.HandleInput("/reset"); got != ActionReset {
		t.Fatalf("got %v, want ActionReset", got)
	}
	c.Start()
	if got := c.HandleInput("/exit"); got != ActionExit {
		t.Fatalf("got %v, want ActionExit", got)
	}
	if len(c.History()) != 0 {
		t.Errorf("reset+exit left %d turns in history", len(c.History()))
	}
}

func TestFIFOCap(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s", MaxMessages: 3})

	c.HandleInput("first")
	c.CompleteTurn("reply one")
	c.HandleInput("second")
	c.CompleteTurn("reply two")

	turns := c.History()
	if len(turns) != 3 {
		t.Fatalf("history length = %d, want 3", len(turns))
	}
	// The oldest turn ("first") was evicted.
	for _, turn := range turns {
		if turn.Content == "first" {
			t.Error("oldest turn still present after cap exceeded")
		}
	}
	want := []string{"reply one", "second", "reply two"}
	for i, content := range want {
		if turns[i].Content != content {
			t.Errorf("turns[%d] = %q, want %q", i, turns[i].Content, content)
		}
	}
}

func TestMaxMessagesZero(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s", MaxMessages: 0})

	c.HandleInput("hello")

	// The in-flight user turn still reaches the model.
	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Messages() = %d entries, want system + pending user", len(msgs))
	}
	if msgs[1].Content != "hello" {
		t.Errorf("pending content = %q, want %q", msgs[1].Content, "hello")
	}

	c.CompleteTurn("hi")
	if len(c.History()) != 0 {
		t.Errorf("history holds %d turns with zero cap", len(c.History()))
	}
	if len(c.Messages()) != 1 {
		t.Errorf("Messages() = %d entries after completion, want system only", len(c.Messages()))
	}
}

func TestMessagesOrder(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "be brief", MaxMessages: 20})

	c.HandleInput("my name is Ada")

	msgs := c.Messages()
	if len(msgs) != 3 {
		t.Fatalf("Messages() = %d entries, want 3", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != "be brief" {
		t.Errorf("msgs[0] = %+v, want pinned system prompt", msgs[0])
	}
	if msgs[1].Role != "system" || !strings.Contains(msgs[1].Content, "User name: Ada") {
		t.Errorf("msgs[1] = %+v, want session facts", msgs[1])
	}
	if msgs[2].Role != "user" || msgs[2].Content != "my name is Ada" {
		t.Errorf("msgs[2] = %+v, want pending user turn", msgs[2])
	}
}

func TestFactCapture(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "my name is Ada", "Ada"},
		{"mid-sentence", "by the way, my name is Grace", "Grace"},
		{"case-insensitive keyword", "MY NAME IS bob", "bob"},
		{"hyphenated", "my name is Mary-Jane", "Mary-Jane"},
		{"apostrophe", "my name is O'Brien", "O'Brien"},
		{"no boundary", "dummy name is X", ""},
		{"no fact", "what is the weather", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(Config{SystemPrompt: "s", MaxMessages: 20})
			c.HandleInput(tt.input)

			got := c.Facts()["name"]
			if got != tt.want {
				t.Errorf("captured name = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFactUpdated(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s", MaxMessages: 20})

	c.HandleInput("my name is Ada")
	c.CompleteTurn("hi Ada")
	c.HandleInput("actually my name is Grace")

	if got := c.Facts()["name"]; got != "Grace" {
		t.Errorf("name = %q, want Grace", got)
	}
}

func TestRawInputPreserved(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s", MaxMessages: 20})

	c.HandleInput("  spaced out  ")

	turn, ok := c.PendingTurn()
	if !ok {
		t.Fatal("PendingTurn() = false after send")
	}
	// Trimming applies to command matching only, not message content.
	if turn.Content != "  spaced out  " {
		t.Errorf("pending content = %q, want raw input", turn.Content)
	}
}

func TestPendingTurn(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s", MaxMessages: 20})

	if _, ok := c.PendingTurn(); ok {
		t.Error("PendingTurn() = true before any input")
	}

	c.HandleInput("hello")
	turn, ok := c.PendingTurn()
	if !ok || turn.Role != history.RoleUser || turn.Content != "hello" {
		t.Errorf("PendingTurn() = %+v, %v", turn, ok)
	}

	c.CompleteTurn("hi")
	if _, ok := c.PendingTurn(); ok {
		t.Error("PendingTurn() = true after completion")
	}
}

func TestFailTurn(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s", MaxMessages: 20})

	c.HandleInput("doomed question")
	c.FailTurn()

	if c.State() != StateAwaitingInput {
		t.Errorf("state = %v, want awaiting-input", c.State())
	}
	// The user turn survives the failure so a retry keeps its context.
	turns := c.History()
	if len(turns) != 1 || turns[0].Content != "doomed question" {
		t.Errorf("history = %+v, want the failed user turn", turns)
	}
	if _, ok := c.PendingTurn(); ok {
		t.Error("PendingTurn() = true after failure")
	}
}

func TestLoadTurns(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s", MaxMessages: 3})

	var turns []history.Turn
	for _, content := range []string{"one", "two", "three", "four", "five"} {
		turns = append(turns, history.NewTurn(history.RoleUser, content))
	}
	c.LoadTurns(turns)

	got := c.History()
	if len(got) != 3 {
		t.Fatalf("history length = %d, want 3", len(got))
	}
	if got[0].Content != "three" || got[2].Content != "five" {
		t.Errorf("resumed history = %+v, want most recent three", got)
	}
}

func TestIdleTimeout(t *testing.T) {
	current := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	c := NewController(Config{SystemPrompt: "s", MaxMessages: 20, IdleTimeout: 5 * time.Minute})
	c.now = clock
	c.Start()

	if got := c.HandleInput("hello"); got != ActionSend {
		t.Fatalf("got %v, want ActionSend", got)
	}
	c.CompleteTurn("hi")

	// Within the window the session stays alive.
	current = current.Add(4 * time.Minute)
	if got := c.HandleInput("still here"); got != ActionSend {
		t.Fatalf("got %v, want ActionSend within timeout", got)
	}
	c.CompleteTurn("yes")

	// Past the window the next input event expires the session.
	current = current.Add(6 * time.Minute)
	if got := c.HandleInput("too late"); got != ActionTimeout {
		t.Fatalf("got %v, want ActionTimeout", got)
	}
	if c.State() != StateTerminated {
		t.Errorf("state = %v, want terminated", c.State())
	}
}

func TestIdleTimeoutDisabled(t *testing.T) {
	current := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	c := NewController(Config{SystemPrompt: "s", MaxMessages: 20})
	c.now = func() time.Time { return current }
	c.Start()

	current = current.Add(1000 * time.Hour)
	if got := c.HandleInput("hello"); got != ActionSend {
		t.Errorf("got %v, want ActionSend with timeout disabled", got)
	}
}

func TestTerminate(t *testing.T) {
	c := newTestController(Config{SystemPrompt: "s"})
	c.Terminate()
	if c.State() != StateTerminated {
		t.Errorf("state = %v, want terminated", c.State())
	}
}

func TestGetStatus(t *testing.T) {
	current := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	c := NewController(Config{SystemPrompt: "s", MaxMessages: 20})
	c.now = func() time.Time { return current }
	c.startTime = current
	c.lastActivity = current
	c.Start()

	c.HandleInput("my name is Ada")
	c.CompleteTurn("hi Ada")

	current = current.Add(90 * time.Second)
	status := c.GetStatus()

	if status.State != StateAwaitingInput {
		t.Errorf("State = %v", status.State)
	}
	if status.Turns != 2 || status.Facts != 1 {
		t.Errorf("Turns/Facts = %d/%d, want 2/1", status.Turns, status.Facts)
	}
	if status.Duration != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", status.Duration)
	}
	if status.IdleTime != 90*time.Second {
		t.Errorf("IdleTime = %v, want 90s", status.IdleTime)
	}
	if !strings.HasPrefix(status.SessionID, "sess_") {
		t.Errorf("SessionID = %q", status.SessionID)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{2 * time.Minute, "2m"},
		{150 * time.Second, "2m 30s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
