// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - Transcript browsing command handler.
//
// Handles "qwen history":
//
//   qwen history list               Table of transcript segments
//   qwen history show NAME [--raw]  Render one transcript
//
// show accepts a segment name from the list or a path, renders the turns
// as markdown on a TTY, and prints plain markdown when piped or --raw.

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/qwen-cli/internal/history"
)

// HandleHistory handles the "history" command.
func HandleHistory(env *Env, args Args) error {
	parser := NewArgParser(args.Raw)
	dir := env.HistoryDir(parser.Flag("history-dir"))

	switch parser.Subcommand() {
	case "", "list", "ls":
		sessions, err := history.List(dir)
		if err != nil {
			return err
		}
		fmt.Print(history.FormatSessionList(sessions))
		return nil

	case "show":
		return handleHistoryShow(env, parser, dir)

	default:
		return NewUsageErrorWithHint(
			fmt.Sprintf("unknown history subcommand %q", parser.Subcommand()),
			"qwen history {list|show NAME}")
	}
}

func handleHistoryShow(env *Env, parser *ArgParser, dir string) error {
	arg := parser.Positional(1)
	if arg == "" {
		return NewUsageErrorWithHint("history show requires a session name or path",
			"qwen history show NAME (see: qwen history list)")
	}

	path := history.Resolve(arg, dir)
	turns, skipped, err := history.Load(path)
	if err != nil {
		if err == history.ErrSessionNotFound {
			return fmt.Errorf("%w: %s", history.ErrSessionNotFound, arg)
		}
		return err
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "%s Skipped %d malformed transcript lines\n",
			WarningStyle.Render("[!]"), skipped)
	}

	name := strings.TrimSuffix(filepath.Base(path), ".jsonl")
	markdown := history.ExportMarkdown(name, turns)

	if parser.BoolFlag("raw") || !IsStdoutTTY() {
		fmt.Print(markdown)
		return nil
	}
	fmt.Print(renderMarkdown(markdown))
	return nil
}
