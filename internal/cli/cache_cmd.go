// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cache_cmd.go - Response cache maintenance command handler.
//
// Handles "qwen cache":
//
//   qwen cache stats   Entry count, hit count, and size on disk
//   qwen cache clear   Drop all cached responses
//
// The cache itself is populated by "qwen ask --cached".

package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/qwen-cli/internal/cache"
)

// HandleCache handles the "cache" command.
func HandleCache(env *Env, args Args) error {
	parser := NewArgParser(args.Raw)

	store, err := cache.Open(env.Workspace.CachePath())
	if err != nil {
		return err
	}
	defer store.Close()

	switch parser.Subcommand() {
	case "", "stats":
		return handleCacheStats(env, store)
	case "clear":
		return handleCacheClear(env, store)
	default:
		return NewUsageErrorWithHint(
			fmt.Sprintf("unknown cache subcommand %q", parser.Subcommand()),
			"qwen cache {stats|clear}")
	}
}

func handleCacheStats(env *Env, store *cache.Store) error {
	stats, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Println(SectionStyle.Render("Response cache"))
	fmt.Printf("  %s %s\n", LabelStyle.Render("Location:"), env.Workspace.CachePath())
	fmt.Printf("  %s %d\n", LabelStyle.Render("Entries:"), stats.Entries)
	fmt.Printf("  %s %d\n", LabelStyle.Render("Hits:"), stats.Hits)
	fmt.Printf("  %s %s\n", LabelStyle.Render("Size:"), formatBytes(stats.SizeBytes))
	return nil
}

func handleCacheClear(env *Env, store *cache.Store) error {
	removed, err := store.Clear()
	if err != nil {
		return err
	}

	env.Log.Info("cache cleared", zap.Int64("entries", removed))
	fmt.Printf("%s Cleared %d cached responses\n", SuccessStyle.Render("[OK]"), removed)
	return nil
}
