// qwen-cli - local AI chat for your terminal, powered by Ollama.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	// Help, version, and unknown commands resolve before any workspace or
	// config I/O happens; `qwen help` works on a machine with no setup.
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	case cli.CmdUnknown:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args.Raw[0])
		cli.PrintUsage()
		os.Exit(cli.ExitUsageError)
	}

	env, err := cli.NewEnv(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}

	err = dispatch(cmd, env, args)
	if err != nil {
		env.Log.Error("command failed", zap.Error(err))
	}
	env.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}

// dispatch routes a parsed command to its handler.
func dispatch(cmd cli.Command, env *cli.Env, args cli.Args) error {
	switch cmd {
	case cli.CmdAsk:
		return cli.HandleAsk(env, args)
	case cli.CmdChat:
		return cli.HandleChat(env, args)
	case cli.CmdTUI:
		return cli.HandleTUI(env, args)
	case cli.CmdStatus:
		return cli.HandleStatus(env, args)
	case cli.CmdInit:
		return cli.HandleInit(env, args)
	case cli.CmdConfig:
		return cli.HandleConfig(env, args)
	case cli.CmdHistory:
		return cli.HandleHistory(env, args)
	case cli.CmdPersona:
		return cli.HandlePersona(env, args)
	case cli.CmdCache:
		return cli.HandleCache(env, args)
	default:
		return fmt.Errorf("unhandled command %d", cmd)
	}
}
