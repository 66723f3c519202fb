// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for qwen-cli.
//
// Configuration lives in a single JSON file. A partially specified file is
// merged over built-in defaults, so missing fields never lose their default
// values. All writes are atomic and create the file with 0600 permissions.
//
// # Key Types
//
//   - Config: the complete configuration record
//   - Persona: sub-record shaping the system prompt's tone and style
//   - ValidationError: a rejected key or value on get/set
//   - ParseError: malformed JSON on disk, fatal at load
//
// # Usage
//
// Load configuration (creates the file with defaults when absent):
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//
// Change one field and persist:
//
//	if err := cfg.Set("model", "qwen:7b"); err != nil {
//	    return err
//	}
//	if err := cfg.Save(path); err != nil {
//	    return err
//	}
//
// There is no package-level config instance: callers pass *Config explicitly
// to the components that need it.
package config
