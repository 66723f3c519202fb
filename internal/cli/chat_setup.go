// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat_setup.go - Session plumbing shared by the chat and tui front-ends.
//
// Both commands resolve the same flag-over-config settings, resume the
// same transcripts, and open the same writer; keeping that here means the
// two stay interchangeable.

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/history"
	"github.com/jeranaias/qwen-cli/internal/session"
)

// sessionSettings carries the per-session values a chat front-end runs
// with, resolved from flags over the loaded config.
type sessionSettings struct {
	MaxMessages int
	System      string
	Title       string
	HistoryDir  string
}

// resolveSessionSettings applies flag overrides on top of the config.
func resolveSessionSettings(env *Env, args Args) sessionSettings {
	cfg := env.Config
	s := sessionSettings{
		MaxMessages: cfg.MaxMessages,
		System:      cfg.EffectiveSystemPrompt(),
		Title:       cfg.Title,
		HistoryDir:  env.HistoryDir(args.HistoryDir),
	}
	if args.MaxMessages >= 0 {
		s.MaxMessages = args.MaxMessages
	}
	if args.System != "" {
		s.System = args.System
	}
	if args.Title != "" {
		s.Title = args.Title
	}
	return s
}

// resumeSession seeds the controller from the transcript named by
// --session. A missing or unreadable session is a warning, not a fatal
// error; the chat starts fresh.
func resumeSession(env *Env, args Args, controller *session.Controller, historyDir string, verbose bool) {
	if args.Session == "" {
		return
	}

	path := history.Resolve(args.Session, historyDir)
	turns, skipped, err := history.Load(path)
	switch {
	case errors.Is(err, history.ErrSessionNotFound):
		fmt.Fprintf(os.Stderr, "%s Session not found: %s\n",
			WarningStyle.Render("[!]"), args.Session)
	case err != nil:
		fmt.Fprintf(os.Stderr, "%s Could not load session: %v\n",
			WarningStyle.Render("[!]"), err)
	default:
		// The controller pins its own system prompt; resume only the
		// conversational turns.
		resumed := make([]history.Turn, 0, len(turns))
		for _, t := range turns {
			if t.Role != history.RoleSystem {
				resumed = append(resumed, t)
			}
		}
		controller.LoadTurns(resumed)
		if skipped > 0 && verbose {
			fmt.Fprintf(os.Stderr, "%s Skipped %d malformed transcript lines\n",
				WarningStyle.Render("[!]"), skipped)
		}
		if verbose {
			fmt.Printf("%s %d turns from %s\n",
				InfoStyle.Render("Loaded history:"), len(resumed), filepath.Base(path))
		}
		env.Log.Info("session resumed",
			zap.String("path", path),
			zap.Int("turns", len(resumed)),
			zap.Int("skipped", skipped))
	}
}

// openTranscript opens the JSONL transcript writer, or returns nil when
// --no-log is set. Open failure downgrades to an unlogged session rather
// than aborting the chat. A fresh segment starts with the system prompt so
// the transcript is self-describing; resumed segments already have one.
func openTranscript(env *Env, args Args, historyDir, title, system string, verbose bool) *history.Writer {
	if args.NoLog {
		return nil
	}

	writer, err := history.NewWriter(historyDir, title, env.HistoryMaxBytes())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s Transcript disabled: %v\n",
			WarningStyle.Render("[!]"), err)
		env.Log.Warn("transcript disabled", zap.Error(err))
		return nil
	}

	writer.OnRotate = func(path string) {
		if verbose {
			fmt.Printf("%s %s\n", DimStyle.Render("Rolled log to:"), path)
		}
		env.Log.Info("transcript rotated", zap.String("path", path))
	}

	if info, statErr := os.Stat(writer.Path()); statErr == nil && info.Size() == 0 {
		if err := writer.Append(history.NewTurn(history.RoleSystem, system)); err != nil {
			env.Log.Warn("transcript write failed", zap.Error(err))
		}
	}
	if verbose {
		fmt.Printf("%s %s\n", DimStyle.Render("Logging to:"), writer.Path())
	}
	return writer
}
