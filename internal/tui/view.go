// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// view.go - rendering for the chat TUI.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/jeranaias/qwen-cli/internal/history"
	"github.com/jeranaias/qwen-cli/internal/session"
)

// Adaptive colors, tuned for light and dark terminals.
var (
	colPurple  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	colEmerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	colRose    = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	colMuted   = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	colSurface = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colPurple)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colEmerald)

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colPurple)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colMuted).
			Italic(true)

	errorBlockStyle = lipgloss.NewStyle().
			Foreground(colRose)

	statusBarStyle = lipgloss.NewStyle().
			Background(colSurface).
			Foreground(colMuted)

	helpKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colEmerald)
)

// View renders the full screen: header, transcript, status bar, input.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteByte('\n')
	sb.WriteString(m.viewport.View())
	sb.WriteByte('\n')
	sb.WriteString(m.renderStatusBar())
	sb.WriteByte('\n')
	sb.WriteString(m.renderInputLine())
	return sb.String()
}

func (m Model) renderHeader() string {
	title := headerStyle.Render("qwen chat")
	sub := noticeStyle.Render(" - " + m.modelName)
	return title + sub
}

// renderInputLine shows the prompt, or the spinner while a response is
// in flight.
func (m Model) renderInputLine() string {
	if m.state == StateStreaming {
		return m.spin.View() + noticeStyle.Render(" waiting for "+m.assistantName+"... (esc to cancel)")
	}
	return m.input.View()
}

// renderStatusBar lays out session facts on the left and the transcript
// location on the right, padded to the full terminal width.
func (m Model) renderStatusBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	st := m.controller.GetStatus()
	left := fmt.Sprintf(" %s | %s | %d turns | %s",
		m.modelName, m.status, st.Turns, session.FormatDuration(st.Duration))

	right := "transcript off "
	if m.writer != nil {
		right = m.writer.Path() + " "
	}

	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	padding := width - leftWidth - rightWidth
	if padding < 0 {
		// Drop the right side before truncating session facts.
		right = ""
		padding = width - leftWidth
		if padding < 0 {
			padding = 0
		}
	}

	return statusBarStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func renderUserBlock(name, content string) string {
	return userLabelStyle.Render(name+":") + " " + content
}

func renderAssistantBlock(name, content string) string {
	return assistantLabelStyle.Render(name+":") + " " + content
}

func renderHelpBlock() string {
	rows := [][2]string{
		{"/help", "show this help"},
		{"/status", "session details"},
		{"/reset", "clear context, keep chatting"},
		{"/exit", "leave (also :q, :quit, ctrl+c)"},
		{"esc", "cancel an in-flight response"},
	}
	var sb strings.Builder
	sb.WriteString(noticeStyle.Render("Commands:"))
	for _, r := range rows {
		sb.WriteByte('\n')
		sb.WriteString("  " + helpKeyStyle.Render(runewidth.FillRight(r[0], 10)) + r[1])
	}
	return sb.String()
}

func renderStatusBlock(st session.Status, w *history.Writer) string {
	var sb strings.Builder
	sb.WriteString(noticeStyle.Render("Session " + st.SessionID))
	sb.WriteString(fmt.Sprintf("\n  State:    %s", st.State))
	sb.WriteString(fmt.Sprintf("\n  Turns:    %d", st.Turns))
	sb.WriteString(fmt.Sprintf("\n  Facts:    %d", st.Facts))
	sb.WriteString(fmt.Sprintf("\n  Duration: %s", session.FormatDuration(st.Duration)))
	sb.WriteString(fmt.Sprintf("\n  Idle:     %s", session.FormatDuration(st.IdleTime)))
	if w != nil {
		sb.WriteString("\n  Log:      " + w.Path())
	} else {
		sb.WriteString("\n  Log:      off")
	}
	return sb.String()
}

// wrapToWidth hard-wraps content for the viewport. Lines that fit pass
// through untouched; long lines break at word boundaries where possible,
// measured with runewidth so wide characters count correctly.
func wrapToWidth(content string, width int) string {
	if width <= 0 {
		return content
	}

	var out strings.Builder
	for i, line := range strings.Split(content, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		if runewidth.StringWidth(stripANSI(line)) <= width {
			out.WriteString(line)
			continue
		}
		out.WriteString(wrapLine(line, width))
	}
	return out.String()
}

// wrapLine breaks one overlong line. ANSI sequences are rare mid-line in
// transcript blocks (labels are styled separately), so plain rune walking
// is good enough here.
func wrapLine(line string, width int) string {
	var out strings.Builder
	var cur strings.Builder
	curWidth := 0

	flush := func() {
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(strings.TrimRight(cur.String(), " "))
		cur.Reset()
		curWidth = 0
	}

	for _, word := range strings.Split(line, " ") {
		w := runewidth.StringWidth(word)
		switch {
		case curWidth == 0:
			// First word on the line always goes down, even if overlong.
			cur.WriteString(word)
			curWidth = w
		case curWidth+1+w <= width:
			cur.WriteByte(' ')
			cur.WriteString(word)
			curWidth += 1 + w
		default:
			flush()
			cur.WriteString(word)
			curWidth = w
		}
	}
	if cur.Len() > 0 {
		flush()
	}
	return out.String()
}

// stripANSI removes CSI escape sequences for width measurement.
func stripANSI(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}
