// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Environment status command handler.
//
// Handles "qwen status": reports the workspace paths, whether the model
// server is reachable, and which models it has installed. Status always
// exits 0; an unreachable server is a finding, not a failure.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/qwen-cli/internal/history"
	"github.com/jeranaias/qwen-cli/internal/ollama"
	"github.com/jeranaias/qwen-cli/internal/util"
)

// statusPingTimeout bounds the reachability check so status stays snappy
// when the server is down.
const statusPingTimeout = 3 * time.Second

// HandleStatus handles the "status" command.
func HandleStatus(env *Env, args Args) error {
	cfg := env.Config
	ws := env.Workspace

	fmt.Println(TitleStyle.Render("qwen-cli status"))
	fmt.Println()

	fmt.Println(SectionStyle.Render("Workspace"))
	fmt.Printf("  %s %s\n", LabelStyle.Render("Root:"), ws.Root())
	fmt.Printf("  %s %s\n", LabelStyle.Render("Config:"), env.ConfigPath)
	fmt.Printf("  %s %s\n", LabelStyle.Render("History:"), env.HistoryDir(""))
	fmt.Printf("  %s %s\n", LabelStyle.Render("Logs:"), ws.LogDir())

	if sessions, err := history.List(env.HistoryDir("")); err == nil {
		fmt.Printf("  %s %d\n", LabelStyle.Render("Sessions:"), len(sessions))
	}
	fmt.Println()

	fmt.Println(SectionStyle.Render("Server"))
	fmt.Printf("  %s %s\n", LabelStyle.Render("Host:"), cfg.Host)
	fmt.Printf("  %s %s\n", LabelStyle.Render("Model:"), cfg.Model)

	client := ollama.NewClient(cfg.Host)
	ctx, cancel := context.WithTimeout(context.Background(), statusPingTimeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		fmt.Printf("  %s %s %v\n", LabelStyle.Render("Reachable:"), RenderStatus("fail"), err)
		fmt.Println()
		fmt.Println(DimStyle.Render("Start the server and re-run: qwen status"))
		return nil
	}
	fmt.Printf("  %s %s\n", LabelStyle.Render("Reachable:"), RenderStatus("ok"))
	fmt.Println()

	models, err := client.ListModels(ctx)
	if err != nil {
		fmt.Printf("%s could not list models: %v\n", WarningStyle.Render("[!]"), err)
		return nil
	}

	fmt.Println(SectionStyle.Render("Models"))
	if len(models) == 0 {
		fmt.Println(DimStyle.Render("  (none installed)"))
		return nil
	}

	configured := false
	fmt.Printf("  %s %s %s\n",
		util.PadRight("NAME", 28), util.PadRight("SIZE", 10), "MODIFIED")
	for _, m := range models {
		name := m.Name
		if m.Name == cfg.Model {
			configured = true
			name += " *"
		}
		fmt.Printf("  %s %s %s\n",
			util.PadRight(name, 28),
			util.PadRight(history.FormatSize(m.Size), 10),
			m.ModifiedAt.Format("2006-01-02"))
	}
	fmt.Println(DimStyle.Render("  * = configured model"))

	if !configured {
		fmt.Println()
		fmt.Printf("%s Configured model %q is not installed. It will be pulled on first use (with consent).\n",
			WarningStyle.Render("[!]"), cfg.Model)
	}

	return nil
}
