// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler.
//
// Handles "qwen chat": a line-oriented REPL around the session controller.
// Each turn streams the model's reply to stdout and, unless --no-log is
// set, appends both sides to the JSONL transcript. The REPL also watches
// config.json so "qwen config set" in another terminal takes effect on the
// next turn.
//
// Command: chat
//
// Examples:
//   qwen chat
//   qwen chat --title standup --max-messages 10
//   qwen chat --session chat-2025-01-15-1
//   qwen chat --no-log --system "You are a terse reviewer."

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/config"
	"github.com/jeranaias/qwen-cli/internal/history"
	"github.com/jeranaias/qwen-cli/internal/ollama"
	"github.com/jeranaias/qwen-cli/internal/session"
)

// =============================================================================
// LINE EDITOR
// =============================================================================

// ChatCLI wraps the line editor with persistent REPL input history, so
// up-arrow recall survives across sessions.
type ChatCLI struct {
	line        *liner.State
	historyPath string
}

// NewChatCLI creates the line editor and loads prior input history from
// historyPath. An empty path disables persistence.
func NewChatCLI(historyPath string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyPath: historyPath}
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			c.line.ReadHistory(f)
			f.Close()
		}
	}
	return c
}

// Prompt reads one line of input. Returns liner.ErrPromptAborted on Ctrl+C
// and io.EOF on Ctrl+D.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	return c.line.Prompt(prompt)
}

// Remember adds input to the recall history.
func (c *ChatCLI) Remember(input string) {
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
}

// Close persists the recall history and restores the terminal.
func (c *ChatCLI) Close() {
	if c.historyPath != "" {
		if f, err := os.Create(c.historyPath); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat handles the "chat" command.
func HandleChat(env *Env, args Args) error {
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

	resumeSession(env, args, controller, settings.HistoryDir, !args.Quiet)

	writer := openTranscript(env, args, settings.HistoryDir, settings.Title, settings.System, !args.Quiet)
	if writer != nil {
		defer writer.Close()
	}

	// Hot-reload: pick up config edits between turns. Watch failures are
	// logged and ignored; live reload is a convenience, not a contract.
	var freshCfg atomic.Pointer[config.Config]
	if watcher, err := config.NewWatcher(env.ConfigPath, func() {
		if c, loadErr := config.Load(env.ConfigPath); loadErr == nil {
			freshCfg.Store(c)
		}
	}); err == nil {
		if err := watcher.Watch(); err != nil {
			watcher.Close()
			env.Log.Debug("config watch failed", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	} else {
		env.Log.Debug("config watcher unavailable", zap.Error(err))
	}

	// Ctrl+C during a response cancels the in-flight stream instead of
	// killing the process; at the prompt, liner reports it as an abort.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	repl := NewChatCLI(env.Workspace.ReplHistoryPath())
	defer repl.Close()

	if !args.Quiet {
		printChatBanner(cfg.Model, cfg.Host, writer != nil)
	}

	env.Log.Info("chat started",
		zap.String("session_id", controller.SessionID()),
		zap.String("model", cfg.Model),
		zap.Int("max_messages", settings.MaxMessages),
		zap.Bool("logging", writer != nil))

	controller.Start()
	userPrompt := cfg.UserName + ": "
	assistantLabel := AssistantStyle.Render(cfg.AssistantName+":") + " "

	for {
		// Apply config edits picked up since the last turn. Flag and
		// environment overrides keep their precedence over the file.
		if c := freshCfg.Swap(nil); c != nil {
			if args.Model == "" && os.Getenv(EnvModel) == "" {
				cfg.Model = c.Model
			}
			if args.Host == "" && os.Getenv(EnvHost) == "" && c.Host != cfg.Host {
				cfg.Host = c.Host
				client = ollama.NewClient(cfg.Host)
			}
			cfg.Temperature = c.Temperature
			if !args.Quiet {
				fmt.Printf("%s model=%s temperature=%.1f\n",
					DimStyle.Render("Config reloaded:"), cfg.Model, cfg.Temperature)
			}
			env.Log.Info("config reloaded",
				zap.String("model", cfg.Model),
				zap.Float64("temperature", cfg.Temperature))
		}

		input, err := repl.Prompt(userPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				controller.Terminate()
				sayGoodbye(controller, args.Quiet)
				return nil
			}
			controller.Terminate()
			return fmt.Errorf("input error: %w", err)
		}
		repl.Remember(input)

		// REPL conveniences that never reach the model.
		switch strings.TrimSpace(input) {
		case "/help":
			printChatHelp()
			continue
		case "/status":
			printSessionStatus(controller.GetStatus(), writer)
			continue
		}

		switch controller.HandleInput(input) {
		case session.ActionIgnore:
			continue

		case session.ActionExit:
			sayGoodbye(controller, args.Quiet)
			return nil

		case session.ActionTimeout:
			fmt.Println("Session timed out.")
			env.Log.Info("session timed out", zap.String("session_id", controller.SessionID()))
			sayGoodbye(controller, args.Quiet)
			return nil

		case session.ActionReset:
			fmt.Println("Context reset")
			if writer != nil {
				if err := writer.Rotate(); err != nil {
					env.Log.Warn("transcript rotation failed", zap.Error(err))
				}
			}
			env.Log.Info("context reset", zap.String("session_id", controller.SessionID()))
			controller.Start()
			continue

		case session.ActionSend:
			if pending, ok := controller.PendingTurn(); ok && writer != nil {
				if err := writer.Append(pending); err != nil {
					env.Log.Warn("transcript write failed", zap.Error(err))
				}
			}

			reply, err := streamTurn(ctx, sigCh, client, cfg.Model, controller.Messages(),
				&ollama.Options{Temperature: cfg.Temperature}, assistantLabel)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					fmt.Println(DimStyle.Render("(interrupted)"))
				} else {
					fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("Error:"), err)
				}
				env.Log.Warn("turn failed", zap.Error(err))
				controller.FailTurn()
				continue
			}

			assistant := controller.CompleteTurn(reply)
			if writer != nil {
				if err := writer.Append(assistant); err != nil {
					env.Log.Warn("transcript write failed", zap.Error(err))
				}
			}
		}
	}
}

// streamTurn sends one exchange to the model and streams the reply to
// stdout. A signal on sigCh cancels the stream; the partial reply is
// discarded and the error comes back as context.Canceled.
func streamTurn(ctx context.Context, sigCh <-chan os.Signal, client *ollama.Client,
	model string, messages []ollama.Message, opts *ollama.Options, label string) (string, error) {

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-streamCtx.Done():
		}
	}()

	fmt.Print(label)
	var full strings.Builder
	err := client.ChatStream(streamCtx, model, messages, opts, func(chunk ollama.StreamChunk) {
		full.WriteString(chunk.Content)
		fmt.Print(chunk.Content)
	})
	if err != nil {
		fmt.Println()
		return "", err
	}

	if !strings.HasSuffix(full.String(), "\n") {
		fmt.Println()
	}
	return full.String(), nil
}

// printChatBanner writes the session header shown at startup.
func printChatBanner(model, host string, logging bool) {
	fmt.Println(TitleStyle.Render("Interactive chat started"))
	fmt.Printf("%s %s %s %s\n",
		DimStyle.Render("Model:"), model,
		DimStyle.Render("Host:"), host)
	hint := "Type /exit, :q, or :quit to leave. /reset clears context. /help lists commands."
	if !logging {
		hint += " Transcript logging is off."
	}
	fmt.Println(DimStyle.Render(hint))
	fmt.Println()
}

// printChatHelp lists the REPL commands.
func printChatHelp() {
	fmt.Println(SectionStyle.Render("Commands"))
	fmt.Println("  /exit, :q, :quit   end the session")
	fmt.Println("  /reset             clear the conversation context")
	fmt.Println("  /status            show session state and turn counts")
	fmt.Println("  /help              show this list")
}

// printSessionStatus renders a point-in-time session snapshot.
func printSessionStatus(st session.Status, writer *history.Writer) {
	fmt.Println(SectionStyle.Render("Session"))
	fmt.Printf("  %s %s\n", LabelStyle.Render("ID:"), st.SessionID)
	fmt.Printf("  %s %s\n", LabelStyle.Render("State:"), st.State)
	fmt.Printf("  %s %d\n", LabelStyle.Render("Turns:"), st.Turns)
	fmt.Printf("  %s %d\n", LabelStyle.Render("Facts:"), st.Facts)
	fmt.Printf("  %s %s\n", LabelStyle.Render("Duration:"), session.FormatDuration(st.Duration))
	if writer != nil {
		fmt.Printf("  %s %s\n", LabelStyle.Render("Transcript:"), writer.Path())
	} else {
		fmt.Printf("  %s %s\n", LabelStyle.Render("Transcript:"), "disabled")
	}
}

// sayGoodbye prints the exit line and a short session summary.
func sayGoodbye(controller *session.Controller, quiet bool) {
	fmt.Println("Bye")
	if !quiet {
		st := controller.GetStatus()
		fmt.Println(DimStyle.Render(fmt.Sprintf("Session %s: %d turns in %s",
			st.SessionID, st.Turns, session.FormatDuration(st.Duration))))
	}
}
