// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the chat session state machine.
//
// The controller owns the in-memory conversation: the pinned system prompt,
// the capped turn history, and lightweight session facts. It performs no
// I/O — prompting, printing, model calls, and transcript writes all belong
// to the caller, which drives the machine through Actions.
//
// # Key Types
//
//   - Controller: The session state machine
//   - State: One of Idle, AwaitingInput, AwaitingResponse, Terminated
//   - Action: The controller's verdict on a line of input
//
// # Usage
//
// Drive a session from a read loop:
//
//	ctrl := session.NewController(session.Config{SystemPrompt: prompt, MaxMessages: 20})
//	ctrl.Start()
//	switch ctrl.HandleInput(line) {
//	case session.ActionSend:
//		resp := callModel(ctrl.Messages())
//		ctrl.CompleteTurn(resp)
//	case session.ActionExit:
//		// say goodbye
//	}
//
// One-shot mode is the degenerate case: a single HandleInput/CompleteTurn
// pair followed by Terminate.
package session
