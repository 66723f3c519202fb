// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSafeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "standup", "standup"},
		{"spaces and punctuation", "my session!", "my-session"},
		{"underscores kept", "a_b-c", "a_b-c"},
		{"unicode letters kept", "café", "café"},
		{"only punctuation", "##!", "session"},
		{"empty", "", "session"},
		{"leading and trailing junk", "!hello!", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeTitle(tt.title); got != tt.want {
				t.Errorf("SafeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

// fixedTurn builds a turn with a deterministic timestamp so serialized sizes
// are stable across the test.
func fixedTurn(i int, role, content string) Turn {
	return Turn{
		Timestamp: time.Date(2026, 8, 25, 10, 0, i, 0, time.UTC),
		Role:      role,
		Content:   content,
	}
}

func segmentPaths(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestWriterRotation(t *testing.T) {
	dir := t.TempDir()
	const threshold = 200

	w, err := NewWriter(dir, "rotation", threshold)
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}

	rotations := 0
	w.OnRotate = func(string) { rotations++ }

	var turns []Turn
	var wantBytes int64
	for i := 0; i < 6; i++ {
		turn := fixedTurn(i, RoleUser, strings.Repeat("x", 60))
		turns = append(turns, turn)

		line, err := json.Marshal(turn)
		if err != nil {
			t.Fatal(err)
		}
		wantBytes += int64(len(line)) + 1

		if err := w.Append(turn); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	segments := segmentPaths(t, dir)
	if len(segments) < 2 {
		t.Fatalf("expected rotation to produce multiple segments, got %d", len(segments))
	}
	if rotations != len(segments)-1 {
		t.Errorf("rotations = %d, want %d", rotations, len(segments)-1)
	}

	// Segment bytes must sum to exactly the serialized turn sizes, and no
	// segment may exceed the threshold (no single line here is oversized).
	var gotBytes int64
	for _, path := range segments {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		gotBytes += info.Size()
		if info.Size() > threshold {
			t.Errorf("segment %s is %d bytes, exceeds threshold %d", path, info.Size(), threshold)
		}
	}
	if gotBytes != wantBytes {
		t.Errorf("total segment bytes = %d, want %d", gotBytes, wantBytes)
	}

	// Reloading all segments in index order reproduces the appended turns.
	var loaded []Turn
	for i := 1; i <= len(segments); i++ {
		path := filepath.Join(dir, fmt.Sprintf("rotation-%s-%d.jsonl", time.Now().Format("2006-01-02"), i))
		part, skipped, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) error: %v", path, err)
		}
		if skipped != 0 {
			t.Errorf("Load(%s) skipped %d lines", path, skipped)
		}
		loaded = append(loaded, part...)
	}
	if len(loaded) != len(turns) {
		t.Fatalf("reloaded %d turns, want %d", len(loaded), len(turns))
	}
	for i := range turns {
		if loaded[i].Content != turns[i].Content || loaded[i].Role != turns[i].Role {
			t.Errorf("turn %d = %+v, want %+v", i, loaded[i], turns[i])
		}
	}
}

func TestWriterOversizedTurn(t *testing.T) {
	dir := t.TempDir()
	const threshold = 100

	w, err := NewWriter(dir, "big", threshold)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	// A single turn larger than the threshold lands whole in its segment.
	if err := w.Append(fixedTurn(0, RoleUser, strings.Repeat("y", 300))); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	first := w.Path()

	// The next turn must rotate rather than grow the oversized segment.
	if err := w.Append(fixedTurn(1, RoleUser, "small")); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if w.Path() == first {
		t.Error("expected rotation after oversized segment")
	}
	if w.Index() != 2 {
		t.Errorf("Index() = %d, want 2", w.Index())
	}

	turns, _, err := Load(first)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 {
		t.Errorf("oversized segment holds %d turns, want 1", len(turns))
	}
}

func TestWriterResumesIndex(t *testing.T) {
	dir := t.TempDir()
	date := time.Now().Format("2006-01-02")

	// A prior session left segment 3 behind.
	prior := filepath.Join(dir, "work-"+date+"-3.jsonl")
	if err := os.WriteFile(prior, []byte(`{"role":"user","content":"earlier"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWriter(dir, "work", DefaultMaxBytes)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if w.Index() != 3 {
		t.Errorf("Index() = %d, want 3", w.Index())
	}
	if w.Path() != prior {
		t.Errorf("Path() = %q, want %q", w.Path(), prior)
	}

	if err := w.Append(fixedTurn(0, RoleUser, "resumed")); err != nil {
		t.Fatal(err)
	}
	turns, _, err := Load(prior)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Errorf("segment holds %d turns after resume, want 2", len(turns))
	}
}

func TestWriterClosed(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "closed", DefaultMaxBytes)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(fixedTurn(0, RoleUser, "late")); err == nil {
		t.Error("Append() after Close() expected error")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	lines := strings.Join([]string{
		`{"role":"system","content":"be brief"}`, // legacy line without timestamp
		`{"timestamp":"2026-08-25T10:00:00Z","role":"user","content":"hi"}`,
		`{oops`,
		`{"role":"tool","content":"not a chat role"}`,
		``,
		`{"timestamp":"2026-08-25T10:00:05Z","role":"assistant","content":"hello"}`,
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}

	turns, skipped, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(turns) != 3 {
		t.Fatalf("loaded %d turns, want 3", len(turns))
	}
	if turns[0].Role != RoleSystem || !turns[0].Timestamp.IsZero() {
		t.Errorf("legacy line = %+v, want system role with zero timestamp", turns[0])
	}
	if turns[1].Content != "hi" || turns[2].Content != "hello" {
		t.Errorf("turn order not preserved: %+v", turns)
	}
}

func TestLoadNotFound(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.jsonl"))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"bare name", "standup", filepath.Join("hist", "standup.jsonl")},
		{"explicit file", "foo.jsonl", "foo.jsonl"},
		{"relative path", "sub/sess", "sub/sess"},
		{"absolute path", "/tmp/s.jsonl", "/tmp/s.jsonl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.arg, "hist"); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.arg, got, tt.want)
			}
		})
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "alpha-2026-08-20-1.jsonl")
	newer := filepath.Join(dir, "beta-run-2026-08-25-2.jsonl")
	turnLine := `{"timestamp":"2026-08-25T10:00:00Z","role":"user","content":"hi"}` + "\n"

	if err := os.WriteFile(older, []byte(turnLine), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte(turnLine+turnLine), 0o644); err != nil {
		t.Fatal(err)
	}
	// An unrelated file must not be listed.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	sessions, err := List(dir)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("listed %d sessions, want 2", len(sessions))
	}

	// Most recently modified first.
	if sessions[0].Name != "beta-run-2026-08-25-2" {
		t.Errorf("first session = %q, want newest", sessions[0].Name)
	}
	if sessions[0].Title != "beta-run" || sessions[0].Date != "2026-08-25" || sessions[0].Index != 2 {
		t.Errorf("parsed segment = %+v", sessions[0])
	}
	if sessions[0].Turns != 2 || sessions[1].Turns != 1 {
		t.Errorf("turn counts = %d/%d, want 2/1", sessions[0].Turns, sessions[1].Turns)
	}
}

func TestListEmptyDir(t *testing.T) {
	sessions, err := List(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("List() on missing dir error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("listed %d sessions, want 0", len(sessions))
	}
}

func TestParseSegmentName(t *testing.T) {
	tests := []struct {
		name      string
		wantTitle string
		wantDate  string
		wantIndex int
	}{
		{"standup-2026-08-25-2.jsonl", "standup", "2026-08-25", 2},
		{"my-long-title-2026-08-25-10.jsonl", "my-long-title", "2026-08-25", 10},
		{"random.jsonl", "random", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, date, index := parseSegmentName(tt.name)
			if title != tt.wantTitle || date != tt.wantDate || index != tt.wantIndex {
				t.Errorf("parseSegmentName(%q) = (%q, %q, %d), want (%q, %q, %d)",
					tt.name, title, date, index, tt.wantTitle, tt.wantDate, tt.wantIndex)
			}
		})
	}
}

func TestFormatSessionList(t *testing.T) {
	if got := FormatSessionList(nil); got != "No sessions found." {
		t.Errorf("empty list = %q", got)
	}

	sessions := []SessionInfo{{
		Name:    "standup-2026-08-25-1",
		ModTime: time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC),
		Turns:   4,
		Size:    2048,
	}}
	got := FormatSessionList(sessions)
	for _, want := range []string{"standup-2026-08-25-1", "2026-08-25 09:30", "4", "2.0 KB"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatSessionList() missing %q:\n%s", want, got)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.n); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestExportMarkdown(t *testing.T) {
	turns := []Turn{
		fixedTurn(0, RoleSystem, "be brief"),
		fixedTurn(1, RoleUser, "hi"),
		fixedTurn(2, RoleAssistant, "hello"),
	}
	got := ExportMarkdown("standup", turns)

	for _, want := range []string{"# Session standup", "**System**", "**User**", "**Assistant**", "hello"} {
		if !strings.Contains(got, want) {
			t.Errorf("ExportMarkdown() missing %q", want)
		}
	}
}
