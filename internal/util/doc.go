// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across qwen-cli.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - PadRight: fixed-width column padding
//
// # Usage
//
//	// Persist configuration without risking a torn file
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Shorten a transcript preview for display
//	preview := util.TruncateRunes(firstLine, 60)
package util
