// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration command handler.
//
// Handles "qwen config" and its subcommands:
//
//   qwen config list            Show the resolved configuration as JSON
//   qwen config path            Show the config file location
//   qwen config get KEY         Show one value
//   qwen config set KEY VALUE   Persist one value
//
// list and get report the resolved view, including environment and flag
// overrides. set edits the file itself: it reloads from disk first so an
// override active in this process is never accidentally persisted.

package cli

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(env *Env, args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "list", "ls":
		return handleConfigList(env)
	case "path":
		fmt.Println(env.ConfigPath)
		return nil
	case "get":
		return handleConfigGet(env, parser)
	case "set":
		return handleConfigSet(env, parser)
	default:
		return NewUsageErrorWithHint(
			fmt.Sprintf("unknown config subcommand %q", parser.Subcommand()),
			"qwen config {list|path|get KEY|set KEY VALUE}")
	}
}

func handleConfigList(env *Env) error {
	fmt.Println(env.Config.String())
	return nil
}

func handleConfigGet(env *Env, parser *ArgParser) error {
	key := parser.Positional(1)
	if key == "" {
		return NewUsageErrorWithHint("config get requires a key",
			"qwen config get KEY (keys: "+strings.Join(config.Keys(), ", ")+")")
	}

	value, err := env.Config.Get(key)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func handleConfigSet(env *Env, parser *ArgParser) error {
	key := parser.Positional(1)
	value := strings.Join(parser.PositionalFrom(2), " ")
	if key == "" || parser.PositionalCount() < 3 {
		return NewUsageErrorWithHint("config set requires a key and a value",
			"qwen config set KEY VALUE")
	}

	// Edit the file's actual contents, not the resolved view, so flag and
	// environment overrides active in this process are not written back.
	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Save(env.ConfigPath); err != nil {
		return err
	}

	env.Log.Info("config updated", zap.String("key", key))
	fmt.Printf("%s Saved %s to %s\n", SuccessStyle.Render("[OK]"), key, env.ConfigPath)
	return nil
}
