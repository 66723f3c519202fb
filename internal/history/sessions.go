// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/qwen-cli/internal/util"
)

// Load parses a transcript segment back into turns for session resumption.
// Malformed lines and lines with unrecognized roles are skipped rather than
// aborting the load; the skipped count is returned so callers can warn.
func Load(path string) ([]Turn, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrSessionNotFound
		}
		return nil, 0, fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()

	var turns []Turn
	skipped := 0

	scanner := bufio.NewScanner(f)
	// Large pasted prompts produce long lines.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var turn Turn
		if err := json.Unmarshal(line, &turn); err != nil {
			skipped++
			continue
		}
		if !validRoles[turn.Role] {
			skipped++
			continue
		}
		turns = append(turns, turn)
	}
	if err := scanner.Err(); err != nil {
		return turns, skipped, fmt.Errorf("failed to read session file: %w", err)
	}

	return turns, skipped, nil
}

// Resolve maps a session argument to a transcript path. Arguments carrying a
// path separator or a .jsonl suffix are taken as paths; bare names are
// looked up under the history directory.
func Resolve(arg, dir string) string {
	if strings.ContainsAny(arg, `/\`) || strings.HasSuffix(arg, ".jsonl") {
		return arg
	}
	return filepath.Join(dir, arg+".jsonl")
}

// SessionInfo contains segment metadata for listing.
type SessionInfo struct {
	Path    string
	Name    string // file name without extension
	Title   string
	Date    string
	Index   int
	Size    int64
	ModTime time.Time
	Turns   int
}

// List returns the transcript segments under dir, most recently modified
// first. Unreadable files are skipped.
func List(dir string) ([]SessionInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var sessions []SessionInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		turns, _, err := Load(path)
		if err != nil {
			continue
		}

		title, date, index := parseSegmentName(entry.Name())
		sessions = append(sessions, SessionInfo{
			Path:    path,
			Name:    strings.TrimSuffix(entry.Name(), ".jsonl"),
			Title:   title,
			Date:    date,
			Index:   index,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Turns:   len(turns),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ModTime.After(sessions[j].ModTime)
	})

	return sessions, nil
}

// parseSegmentName splits <title>-YYYY-MM-DD-<index>.jsonl into its parts.
// The title may itself contain dashes. Files that don't match the segment
// layout come back with the whole stem as title.
func parseSegmentName(name string) (string, string, int) {
	stem := strings.TrimSuffix(name, ".jsonl")
	parts := strings.Split(stem, "-")
	if len(parts) < 5 {
		return stem, "", 0
	}

	index, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return stem, "", 0
	}
	date := strings.Join(parts[len(parts)-4:len(parts)-1], "-")
	title := strings.Join(parts[:len(parts)-4], "-")
	return title, date, index
}

// FormatSessionList renders segments as a fixed-width table for display.
func FormatSessionList(sessions []SessionInfo) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("NAME", 34) + " " +
		util.PadRight("MODIFIED", 17) + " " +
		util.PadRight("TURNS", 6) + " SIZE\n")

	for _, s := range sessions {
		sb.WriteString(util.PadRight(s.Name, 34) + " " +
			util.PadRight(s.ModTime.Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(strconv.Itoa(s.Turns), 6) + " " +
			FormatSize(s.Size) + "\n")
	}
	return sb.String()
}

// FormatSize renders a byte count in human-readable form.
func FormatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return strconv.FormatFloat(float64(n)/(1<<20), 'f', 1, 64) + " MB"
	case n >= 1<<10:
		return strconv.FormatFloat(float64(n)/(1<<10), 'f', 1, 64) + " KB"
	default:
		return strconv.FormatInt(n, 10) + " B"
	}
}

// ExportMarkdown renders a loaded transcript as Markdown with role labels
// and timestamps.
func ExportMarkdown(name string, turns []Turn) string {
	var sb strings.Builder
	sb.WriteString("# Session " + name + "\n\n")

	for _, turn := range turns {
		label := "**User**"
		switch turn.Role {
		case RoleAssistant:
			label = "**Assistant**"
		case RoleSystem:
			label = "**System**"
		}
		if !turn.Timestamp.IsZero() {
			label += " (" + turn.Timestamp.Format("15:04") + ")"
		}
		sb.WriteString(label + ":\n\n")
		sb.WriteString(turn.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}
