// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is the full-screen chat interface. It reuses the session
// controller and transcript writer from line-mode chat and renders with
// Bubble Tea: tokens stream from a background goroutine into the program
// as messages, batched through a frame-rate buffer so heavy streams don't
// overwhelm the renderer.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/history"
	"github.com/jeranaias/qwen-cli/internal/ollama"
	"github.com/jeranaias/qwen-cli/internal/session"
)

// Options configures a TUI session. Writer may be nil to disable
// transcript logging.
type Options struct {
	Client        *ollama.Client
	Model         string
	Temperature   float64
	Controller    *session.Controller
	Writer        *history.Writer
	Log           *zap.Logger
	UserName      string
	AssistantName string

	runner *StreamRunner
}

// Run starts the TUI and blocks until the user exits.
func Run(opts Options) error {
	if opts.Client == nil || opts.Controller == nil {
		return fmt.Errorf("tui: client and controller are required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.UserName == "" {
		opts.UserName = "You"
	}
	if opts.AssistantName == "" {
		opts.AssistantName = "Qwen"
	}

	opts.runner = NewStreamRunner(opts.Client)
	opts.Controller.Start()

	m := newModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// The runner needs the program to push stream messages; the program
	// needs the model, which holds the runner. Late binding breaks the
	// cycle.
	opts.runner.SetProgram(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	st := opts.Controller.GetStatus()
	fmt.Printf("Session %s: %d turns in %s\n",
		st.SessionID, st.Turns, session.FormatDuration(st.Duration))
	return nil
}
