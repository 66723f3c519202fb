// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// model.go - Bubble Tea model for the chat TUI.
//
// The TUI drives the same session controller and transcript writer as the
// line-mode chat command; only the rendering differs. One exchange flows:
// submit -> controller marks a pending turn -> StreamRunner goroutine ->
// Stream*Msg updates -> CompleteTurn/FailTurn.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/history"
	"github.com/jeranaias/qwen-cli/internal/ollama"
	"github.com/jeranaias/qwen-cli/internal/session"
)

// State is the view's input-handling mode.
type State int

const (
	// StateReady accepts input.
	StateReady State = iota
	// StateStreaming is receiving a response; input is parked.
	StateStreaming
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	controller *session.Controller
	writer     *history.Writer
	runner     *StreamRunner
	log        *zap.Logger

	modelName     string
	userName      string
	assistantName string
	chatOpts      *ollama.Options

	// Rendered transcript blocks, one per turn or notice.
	blocks []string
	// Partial assistant reply accumulated during streaming.
	current string

	streamBuf *StreamingBuffer
	cancel    *cancelState

	status string
}

// newModel builds the initial model from validated options.
func newModel(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message... (/help for commands)"
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}

	m := Model{
		state:         StateReady,
		viewport:      vp,
		input:         ti,
		spin:          sp,
		controller:    opts.Controller,
		writer:        opts.Writer,
		runner:        opts.runner,
		log:           opts.Log,
		modelName:     opts.Model,
		userName:      opts.UserName,
		assistantName: opts.AssistantName,
		chatOpts:      &ollama.Options{Temperature: opts.Temperature},
		streamBuf:     NewStreamingBuffer(),
		cancel:        newCancelState(),
		status:        "ready",
	}

	// A resumed session already has turns; show them in the scrollback.
	for _, t := range opts.Controller.History() {
		switch t.Role {
		case history.RoleUser:
			m.blocks = append(m.blocks, renderUserBlock(m.userName, t.Content))
		case history.RoleAssistant:
			m.blocks = append(m.blocks, renderAssistantBlock(m.assistantName, t.Content))
		}
	}
	return m
}

// Init starts the cursor blink and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel.Cancel()
			m.controller.Terminate()
			return m, tea.Quit

		case "esc":
			if m.state == StateStreaming {
				// Cancellation surfaces as StreamErrorMsg(context.Canceled).
				m.cancel.Cancel()
				return m, nil
			}
			m.controller.Terminate()
			return m, tea.Quit

		case "enter":
			return m.submit()
		}

	case StreamStartMsg:
		m.status = "thinking"
		return m, nil

	case StreamTokenMsg:
		m.streamBuf.Write(msg.Token)
		if m.status != "streaming" {
			m.status = "streaming"
		}
		return m, nil

	case StreamTickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		if text, ok := m.streamBuf.Flush(); ok {
			m.current += text
			m.refreshViewport()
		}
		return m, streamTickCmd()

	case StreamDoneMsg:
		return m.finishTurn(msg), nil

	case StreamErrorMsg:
		return m.failTurn(msg.Err), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	// Everything else feeds the focused input and the viewport (scroll keys,
	// mouse wheel).
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.state == StateReady {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleResize fits the layout to the terminal.
func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	// Header, status line, and input each take one row.
	contentHeight := msg.Height - 3
	if contentHeight < 3 {
		contentHeight = 3
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = contentHeight
	m.input.Width = msg.Width - 4

	m.ready = true
	m.refreshViewport()
	return m
}

// submit processes one line of input through the session controller.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		return m, nil
	}

	raw := m.input.Value()
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return m, nil
	}
	m.input.SetValue("")

	// View-level commands that never reach the model.
	switch trimmed {
	case "/help":
		m.blocks = append(m.blocks, renderHelpBlock())
		m.refreshViewport()
		return m, nil
	case "/status":
		m.blocks = append(m.blocks, renderStatusBlock(m.controller.GetStatus(), m.writer))
		m.refreshViewport()
		return m, nil
	}

	switch m.controller.HandleInput(raw) {
	case session.ActionIgnore:
		return m, nil

	case session.ActionExit:
		return m, tea.Quit

	case session.ActionTimeout:
		m.blocks = append(m.blocks, noticeStyle.Render("Session timed out."))
		m.refreshViewport()
		return m, tea.Quit

	case session.ActionReset:
		m.blocks = nil
		m.current = ""
		m.streamBuf.Reset()
		if m.writer != nil {
			if err := m.writer.Rotate(); err != nil {
				m.log.Warn("transcript rotation failed", zap.Error(err))
			}
		}
		m.controller.Start()
		m.blocks = append(m.blocks, noticeStyle.Render("Context reset"))
		m.status = "ready"
		m.refreshViewport()
		m.log.Info("context reset", zap.String("session_id", m.controller.SessionID()))
		return m, nil

	case session.ActionSend:
		pending, ok := m.controller.PendingTurn()
		if !ok {
			return m, nil
		}
		if m.writer != nil {
			if err := m.writer.Append(pending); err != nil {
				m.log.Warn("transcript write failed", zap.Error(err))
			}
		}

		m.blocks = append(m.blocks, renderUserBlock(m.userName, pending.Content))
		m.state = StateStreaming
		m.current = ""
		m.streamBuf.Reset()
		m.status = "sending"
		m.refreshViewport()

		ctx, cancel := context.WithCancel(context.Background())
		m.cancel.Set(cancel)
		go m.runner.Run(ctx, m.modelName, m.controller.Messages(), m.chatOpts)

		return m, streamTickCmd()
	}

	return m, nil
}

// finishTurn commits a completed response.
func (m Model) finishTurn(msg StreamDoneMsg) Model {
	if text, ok := m.streamBuf.ForceFlush(); ok {
		m.current += text
	}
	reply := m.current
	m.current = ""
	m.cancel.Set(nil)

	assistant := m.controller.CompleteTurn(reply)
	if m.writer != nil {
		if err := m.writer.Append(assistant); err != nil {
			m.log.Warn("transcript write failed", zap.Error(err))
		}
	}

	m.blocks = append(m.blocks, renderAssistantBlock(m.assistantName, reply))
	m.state = StateReady
	m.status = fmt.Sprintf("%d tokens in %s", msg.CompletionTokens, msg.Duration.Round(time.Millisecond))
	m.refreshViewport()

	m.log.Info("turn complete",
		zap.Int("completion_tokens", msg.CompletionTokens),
		zap.Duration("duration", msg.Duration))
	return m
}

// failTurn returns to the prompt after a failed or cancelled stream. The
// user turn stays in controller history so a retry keeps its context.
func (m Model) failTurn(err error) Model {
	m.streamBuf.Reset()
	m.current = ""
	m.cancel.Set(nil)

	m.controller.FailTurn()
	m.state = StateReady

	if errors.Is(err, context.Canceled) {
		m.blocks = append(m.blocks, noticeStyle.Render("(interrupted)"))
		m.status = "interrupted"
	} else {
		m.blocks = append(m.blocks, errorBlockStyle.Render("Error: "+err.Error()))
		m.status = "error"
	}
	m.refreshViewport()

	m.log.Warn("turn failed", zap.Error(err))
	return m
}

// refreshViewport re-renders the transcript and pins the view to the
// newest content.
func (m *Model) refreshViewport() {
	var sb strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(block)
	}
	if m.state == StateStreaming && m.current != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(renderAssistantBlock(m.assistantName, m.current))
	}

	m.viewport.SetContent(wrapToWidth(sb.String(), m.viewport.Width))
	m.viewport.GotoBottom()
}
