// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// messages.go - Bubble Tea messages for the chat TUI.

package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// StreamStartMsg signals that the model accepted the request and streaming
// has begun.
type StreamStartMsg struct {
	At time.Time
}

// StreamTokenMsg delivers one content fragment from the stream.
type StreamTokenMsg struct {
	Token string
}

// StreamDoneMsg signals a completed response.
type StreamDoneMsg struct {
	CompletionTokens int
	Duration         time.Duration
}

// StreamErrorMsg signals a failed or cancelled stream.
type StreamErrorMsg struct {
	Err error
}

// StreamTickMsg drives buffered token draining while a stream is active.
type StreamTickMsg struct {
	Time time.Time
}

// streamTickCmd schedules the next drain tick at the frame interval.
func streamTickCmd() tea.Cmd {
	return tea.Tick(streamFrameInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
