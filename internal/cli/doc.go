// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for qwen-cli.
//
// This package implements all CLI commands for the qwen chat client,
// covering the one-shot ask mode, the interactive chat REPL, and the
// management commands around them (config, history, persona, cache).
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//
// # Usage
//
// Parse and execute commands:
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdAsk:
//	    cli.HandleAsk(args)
//	case cli.CmdChat:
//	    cli.HandleChat(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
// Core Commands:
//   - ask: Single question query
//   - chat: Interactive chat session
//   - tui: Full-screen terminal chat UI
//   - status: Server and workspace status display
//   - init: First-run workspace initialization
//
// Management Commands:
//   - config: Configuration management (list, path, get, set)
//   - history: Saved transcript listing and export
//   - persona: Persona preset listing and selection
//   - cache: Response cache statistics and clearing
//
// Configuration resolution follows flag > environment > config file >
// built-in defaults; the resolved value is threaded explicitly through
// handlers rather than held in package state.
package cli
