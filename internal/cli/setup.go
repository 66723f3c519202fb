// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - Workspace initialization command handler.
//
// Handles "qwen init": creates the workspace tree (config, history, logs),
// seeds the system prompt template and starter persona presets, and prints
// where everything lives. Re-running is safe; existing files are left
// untouched.

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/qwen-cli/internal/config"
	"github.com/jeranaias/qwen-cli/internal/persona"
)

// HandleInit handles the "init" command.
func HandleInit(env *Env, args Args) error {
	ws := env.Workspace

	if err := ws.Init(config.DefaultSystemPrompt); err != nil {
		return err
	}

	seededPersonas := false
	if _, err := os.Stat(ws.PersonasPath()); os.IsNotExist(err) {
		if err := persona.WriteStarter(ws.PersonasPath()); err != nil {
			return err
		}
		seededPersonas = true
	}

	fmt.Println(TitleStyle.Render("Workspace ready"))
	fmt.Printf("  %s %s\n", LabelStyle.Render("Root:"), ws.Root())
	fmt.Printf("  %s %s\n", LabelStyle.Render("Config:"), env.ConfigPath)
	fmt.Printf("  %s %s\n", LabelStyle.Render("History:"), ws.HistoryDir())
	fmt.Printf("  %s %s\n", LabelStyle.Render("Logs:"), ws.LogDir())
	fmt.Printf("  %s %s\n", LabelStyle.Render("Prompt:"), ws.SystemPromptPath())
	if seededPersonas {
		fmt.Printf("  %s %s (seeded)\n", LabelStyle.Render("Personas:"), ws.PersonasPath())
	} else {
		fmt.Printf("  %s %s\n", LabelStyle.Render("Personas:"), ws.PersonasPath())
	}

	fmt.Println()
	fmt.Println(DimStyle.Render("Next: qwen status, then qwen chat"))
	return nil
}
