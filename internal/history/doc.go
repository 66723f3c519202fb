// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists chat transcripts as JSON-lines segment files.
//
// Transcripts are opt-in. When enabled, each turn is appended as one JSON
// line to a segment file named <title>-<date>-<index>.jsonl under the
// history directory; segments rotate to the next index before a write
// would push them past the size threshold.
//
// # Key Types
//
//   - Turn: One timestamped message with its speaker role
//   - Writer: Append-only segment writer with size-based rotation
//   - SessionInfo: Lightweight segment metadata for listing
//
// # Usage
//
// Open a writer and append turns:
//
//	w, err := history.NewWriter(dir, "standup", history.DefaultMaxBytes)
//	err = w.Append(history.NewTurn(history.RoleUser, "hello"))
//
// Resume a prior session:
//
//	turns, skipped, err := history.Load(path)
//
// Malformed lines are skipped during load, never fatal.
package history
