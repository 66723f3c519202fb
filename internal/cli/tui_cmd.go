// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui_cmd.go - Full-screen chat command handler.
//
// Handles "qwen tui": the same session semantics as "qwen chat" behind a
// Bubble Tea interface with a scrollback viewport and live token
// streaming. Flag resolution matches chat so the two front-ends are
// interchangeable.
//
// Command: tui
//
// Examples:
//   qwen tui
//   qwen tui --title standup
//   qwen tui --session chat-2025-01-15-1
//   qwen tui --no-log

package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/ollama"
	"github.com/jeranaias/qwen-cli/internal/session"
	"github.com/jeranaias/qwen-cli/internal/tui"
)

// HandleTUI handles the "tui" command.
func HandleTUI(env *Env, args Args) error {
	if !IsStdoutTTY() {
		return &UsageError{Message: "tui requires an interactive terminal (use ask or chat instead)"}
	}

	cfg := env.Config
	settings := resolveSessionSettings(env, args)

	client := ollama.NewClient(cfg.Host)
	ctx := context.Background()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("cannot reach %s (is the server running?): %w", cfg.Host, err)
	}
	if err := EnsureModel(ctx, client, cfg.Model, args.Yes, args.Quiet); err != nil {
		return err
	}

	controller := session.NewController(session.Config{
		SystemPrompt: settings.System,
		MaxMessages:  settings.MaxMessages,
		IdleTimeout:  time.Duration(cfg.SessionTimeoutMinutes) * time.Minute,
	})

	// The alt screen is about to own stdout, so setup stays silent; the
	// missing-session warnings still reach stderr before it starts.
	resumeSession(env, args, controller, settings.HistoryDir, false)

	writer := openTranscript(env, args, settings.HistoryDir, settings.Title, settings.System, false)
	if writer != nil {
		defer writer.Close()
	}

	env.Log.Info("tui started",
		zap.String("session_id", controller.SessionID()),
		zap.String("model", cfg.Model),
		zap.Int("max_messages", settings.MaxMessages),
		zap.Bool("logging", writer != nil))

	return tui.Run(tui.Options{
		Client:        client,
		Model:         cfg.Model,
		Temperature:   cfg.Temperature,
		Controller:    controller,
		Writer:        writer,
		Log:           env.Log,
		UserName:      cfg.UserName,
		AssistantName: cfg.AssistantName,
	})
}
