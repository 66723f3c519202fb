// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// consent.go - Model availability check and consent-gated pull.
//
// A session never downloads a model silently: when the configured model is
// missing the user is asked first, unless -y/--yes was given. Declining is
// a hard stop (the command cannot proceed without the model).

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/qwen-cli/internal/ollama"
)

// EnsureModel verifies the model exists on the server, prompting to pull
// it when missing. yes skips the prompt; quiet suppresses progress output.
func EnsureModel(ctx context.Context, client *ollama.Client, model string, yes, quiet bool) error {
	has, err := client.HasModel(ctx, model)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	fmt.Fprintf(os.Stderr, "%s Model %q is not available on %s.\n",
		WarningStyle.Render("[!]"), model, client.Host())

	if !yes {
		if !CanPrompt() {
			return fmt.Errorf("model %q is not installed (re-run with --yes to pull it): %w",
				model, ollama.ErrModelNotFound)
		}
		answer := promptInput(fmt.Sprintf("Pull %q now? (y/N): ", model))
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			return fmt.Errorf("cannot proceed without model %q: %w", model, ollama.ErrModelNotFound)
		}
	} else if !quiet {
		fmt.Fprintln(os.Stderr, DimStyle.Render("--yes provided; pulling model."))
	}

	if err := pullWithProgress(ctx, client, model, quiet); err != nil {
		return fmt.Errorf("failed to pull model %q: %w", model, err)
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "%s Model %q ready.\n", SuccessStyle.Render("[OK]"), model)
	}
	return nil
}

// pullWithProgress runs the pull and renders its progress stream. Status
// transitions each get a line; byte progress updates in place, throttled
// so a fast local registry does not flood the terminal.
func pullWithProgress(ctx context.Context, client *ollama.Client, model string, quiet bool) error {
	limiter := rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
	var lastStatus string
	var lineDirty bool

	err := client.Pull(ctx, model, func(p ollama.PullProgress) {
		if quiet {
			return
		}
		if p.Status != "" && p.Status != lastStatus {
			if lineDirty {
				fmt.Fprintln(os.Stderr)
				lineDirty = false
			}
			fmt.Fprintf(os.Stderr, "%s %s\n", DimStyle.Render("[pull]"), p.Status)
			lastStatus = p.Status
		}
		if p.Total > 0 {
			done := p.Completed >= p.Total
			if !done && !limiter.Allow() {
				return
			}
			fmt.Fprintf(os.Stderr, "\r%s %5.1f%% of %s",
				DimStyle.Render("[pull]"), p.Percent(), formatBytes(p.Total))
			lineDirty = true
		}
	})

	if lineDirty {
		fmt.Fprintln(os.Stderr)
	}
	return err
}
