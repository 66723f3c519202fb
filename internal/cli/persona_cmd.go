// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// persona_cmd.go - Persona preset command handler.
//
// Handles "qwen persona":
//
//   qwen persona list        Built-in and user presets
//   qwen persona show NAME   One preset in full
//   qwen persona use NAME    Copy a preset into config.json
//
// User presets live in <workspace>/personas.toml and override built-ins
// with the same name.

package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/config"
	"github.com/jeranaias/qwen-cli/internal/persona"
	"github.com/jeranaias/qwen-cli/internal/util"
)

// HandlePersona handles the "persona" command.
func HandlePersona(env *Env, args Args) error {
	parser := NewArgParser(args.Raw)

	store, err := persona.LoadStore(env.Workspace.PersonasPath())
	if err != nil {
		return err
	}

	switch parser.Subcommand() {
	case "", "list", "ls":
		return handlePersonaList(env, store)
	case "show":
		return handlePersonaShow(store, parser.Positional(1))
	case "use":
		return handlePersonaUse(env, store, parser.Positional(1))
	default:
		return NewUsageErrorWithHint(
			fmt.Sprintf("unknown persona subcommand %q", parser.Subcommand()),
			"qwen persona {list|show NAME|use NAME}")
	}
}

func handlePersonaList(env *Env, store *persona.Store) error {
	active := env.Config.Persona

	fmt.Printf("%s %s\n", util.PadRight("NAME", 16), "DESCRIPTION")
	for _, p := range store.List() {
		name := p.Name
		if p.Persona() == active {
			name += " *"
		}
		fmt.Printf("%s %s\n", util.PadRight(name, 16), p.Description)
	}
	fmt.Println(DimStyle.Render("* = active persona"))
	return nil
}

func handlePersonaShow(store *persona.Store, name string) error {
	if name == "" {
		return NewUsageErrorWithHint("persona show requires a name",
			"qwen persona show NAME (see: qwen persona list)")
	}
	p, ok := store.Get(name)
	if !ok {
		return NewUsageError("unknown persona %q (available: %v)", name, store.Names())
	}

	fmt.Println(SectionStyle.Render(p.Name))
	if p.Description != "" {
		fmt.Printf("  %s %s\n", LabelStyle.Render("About:"), p.Description)
	}
	fmt.Printf("  %s %s\n", LabelStyle.Render("Role:"), p.Role)
	fmt.Printf("  %s %s\n", LabelStyle.Render("Tone:"), p.Tone)
	fmt.Printf("  %s %s\n", LabelStyle.Render("Style:"), p.Style)
	fmt.Printf("  %s %s\n", LabelStyle.Render("Verbosity:"), p.Verbosity)
	return nil
}

func handlePersonaUse(env *Env, store *persona.Store, name string) error {
	if name == "" {
		return NewUsageErrorWithHint("persona use requires a name",
			"qwen persona use NAME (see: qwen persona list)")
	}
	p, ok := store.Get(name)
	if !ok {
		return NewUsageError("unknown persona %q (available: %v)", name, store.Names())
	}

	// Same rule as config set: edit the file contents, not the resolved
	// view, so transient overrides are not persisted alongside the persona.
	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		return err
	}
	cfg.Persona = p.Persona()
	if err := cfg.Save(env.ConfigPath); err != nil {
		return err
	}

	env.Log.Info("persona applied", zap.String("persona", name))
	fmt.Printf("%s Persona %q saved to %s\n", SuccessStyle.Render("[OK]"), name, env.ConfigPath)
	return nil
}
