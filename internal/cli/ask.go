// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot prompt command handler.
//
// Handles "qwen ask", which sends a single prompt to the model and writes
// the reply to stdout. Text format streams tokens as they arrive; markdown
// and json collect the full reply first. Markdown is rendered only when
// stdout is a TTY so piped output stays clean.
//
// Command: ask <prompt>
//
// Examples:
//   qwen ask "What is a goroutine?"
//   qwen ask --format markdown "Explain context.Context"
//   cat notes.txt | qwen ask "Summarize this"
//   qwen ask --cached "What is 2+2?"

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/cache"
	"github.com/jeranaias/qwen-cli/internal/ollama"
	"github.com/jeranaias/qwen-cli/internal/session"
)

// markdownRenderer is the shared glamour renderer for markdown output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to plain text when the renderer cannot initialize.
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or the renderer is
// unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse writes a response with markdown rendering when stdout is
// a TTY, plain otherwise.
func displayResponse(response string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
	} else {
		fmt.Print(response)
	}
}

// AskResult is the envelope emitted for --format json.
type AskResult struct {
	Response         string `json:"response"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	DurationMs       int64  `json:"duration_ms"`
	Cached           bool   `json:"cached,omitempty"`
}

// HandleAsk handles the "ask" command.
func HandleAsk(env *Env, args Args) error {
	cfg := env.Config

	prompt := strings.TrimSpace(args.Query)

	// Piped stdin can supply the prompt, or extend one given as an
	// argument ("explain this:" + piped file).
	if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, readErr := io.ReadAll(bufio.NewReader(os.Stdin))
		if readErr == nil && len(data) > 0 {
			piped := strings.TrimSpace(string(data))
			if prompt == "" {
				prompt = piped
			} else {
				prompt = prompt + "\n\n" + piped
			}
			if !args.Quiet {
				fmt.Fprintf(os.Stderr, "%s Read %d bytes from stdin\n",
					DimStyle.Render("[+]"), len(data))
			}
		}
	}

	if prompt == "" {
		return NewUsageErrorWithHint("no prompt provided", `qwen ask "your question"`)
	}

	format := args.Format
	if format == "" {
		format = cfg.ResponseFormat
	}
	switch format {
	case "text", "markdown", "json":
	default:
		return NewUsageError("invalid format %q (valid: text, markdown, json)", format)
	}

	system := cfg.EffectiveSystemPrompt()

	// One-shot mode is the degenerate session: one input classified, one
	// turn completed, then terminated. Chat control commands are not
	// prompts, so they are rejected here rather than sent to the model.
	controller := session.NewController(session.Config{
		SystemPrompt: system,
		MaxMessages:  cfg.MaxMessages,
	})
	controller.Start()
	defer controller.Terminate()
	if action := controller.HandleInput(prompt); action != session.ActionSend {
		return NewUsageErrorWithHint("chat commands have no effect in one-shot mode",
			`qwen ask "your question"`)
	}

	// The cache is consulted before any network traffic, so a hit still
	// answers when the server is down.
	var store *cache.Store
	if args.Cached {
		s, err := cache.Open(env.Workspace.CachePath())
		if err != nil {
			env.Log.Warn("response cache unavailable", zap.Error(err))
		} else {
			store = s
			defer store.Close()
		}
	}
	key := cache.Key{
		Model:        cfg.Model,
		SystemPrompt: system,
		Prompt:       prompt,
		Temperature:  cfg.Temperature,
	}
	if store != nil && !args.NoCache {
		if response, ok, err := store.Get(key); err == nil && ok {
			env.Log.Info("cache hit", zap.String("model", cfg.Model))
			writeAskResponse(response, format, AskResult{
				Response: response,
				Model:    cfg.Model,
				Cached:   true,
			})
			if !args.Quiet && format != "json" {
				fmt.Fprintln(os.Stderr, DimStyle.Render("(cached)"))
			}
			return nil
		}
	}

	client := ollama.NewClient(cfg.Host)
	ctx := context.Background()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("cannot reach %s (is the server running?): %w", cfg.Host, err)
	}

	if err := EnsureModel(ctx, client, cfg.Model, args.Yes, args.Quiet); err != nil {
		return err
	}

	messages := controller.Messages()
	opts := &ollama.Options{Temperature: cfg.Temperature}

	env.Log.Info("ask",
		zap.String("model", cfg.Model),
		zap.Int("prompt_chars", len(prompt)),
		zap.String("format", format),
		zap.Bool("stream", !args.NoStream))

	// Text format streams tokens live; markdown and json need the whole
	// reply before they can emit anything.
	streamLive := !args.NoStream && format == "text"

	start := time.Now()
	var full strings.Builder
	var promptTokens, completionTokens int

	if args.NoStream {
		resp, err := client.Chat(ctx, cfg.Model, messages, opts)
		if err != nil {
			return err
		}
		full.WriteString(resp.Message.Content)
		promptTokens = resp.PromptEvalCount
		completionTokens = resp.EvalCount
	} else {
		err := client.ChatStream(ctx, cfg.Model, messages, opts, func(chunk ollama.StreamChunk) {
			full.WriteString(chunk.Content)
			if streamLive {
				fmt.Print(chunk.Content)
			}
			if chunk.Done {
				promptTokens = chunk.PromptTokens
				completionTokens = chunk.CompletionTokens
			}
		})
		if err != nil {
			if streamLive && full.Len() > 0 {
				fmt.Println()
			}
			return err
		}
	}
	duration := time.Since(start)

	response := full.String()

	if streamLive {
		if !strings.HasSuffix(response, "\n") {
			fmt.Println()
		}
	} else {
		writeAskResponse(response, format, AskResult{
			Response:         response,
			Model:            cfg.Model,
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			DurationMs:       duration.Milliseconds(),
		})
	}

	if store != nil {
		if err := store.Put(key, response); err != nil {
			env.Log.Warn("cache write failed", zap.Error(err))
		}
	}

	env.Log.Info("ask complete",
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("completion_tokens", completionTokens),
		zap.Duration("duration", duration))

	if !args.Quiet && format != "json" {
		printAskSummary(cfg.Model, promptTokens+completionTokens, duration)
	}

	return nil
}

// writeAskResponse emits the collected response in the requested format.
// Text prints raw, markdown renders on a TTY, json wraps in AskResult.
func writeAskResponse(response, format string, result AskResult) {
	switch format {
	case "json":
		if err := outputJSON(result); err != nil {
			fmt.Print(response)
		}
	case "markdown":
		displayResponse(response)
		if !strings.HasSuffix(response, "\n") {
			fmt.Println()
		}
	default:
		fmt.Print(response)
		if !strings.HasSuffix(response, "\n") {
			fmt.Println()
		}
	}
}

// printAskSummary writes the post-response stats line to stderr.
func printAskSummary(model string, totalTokens int, duration time.Duration) {
	fmt.Fprintln(os.Stderr, RenderSeparator())
	fmt.Fprintf(os.Stderr, "%s %s | %s %s | %s %s\n",
		DimStyle.Render("Model:"), model,
		DimStyle.Render("Tokens:"), ValueStyle.Render(strconv.Itoa(totalTokens)),
		DimStyle.Render("Time:"), formatDuration(duration))
}
