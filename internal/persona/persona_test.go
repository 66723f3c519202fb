// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func TestLoadStoreBuiltinsOnly(t *testing.T) {
	s, err := LoadStore(filepath.Join(t.TempDir(), "personas.toml"))
	if err != nil {
		t.Fatalf("LoadStore() error: %v", err)
	}

	for _, name := range []string{"assistant", "tutor", "reviewer", "creative"} {
		if _, ok := s.Get(name); !ok {
			t.Errorf("builtin %q missing", name)
		}
	}

	names := s.Names()
	if !sort.StringsAreSorted(names) {
		t.Errorf("Names() not sorted: %v", names)
	}
}

func TestLoadStoreUserPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.toml")
	data := `
[personas.pirate]
description = "Argh"
role = "pirate"
tone = "boisterous"
style = "nautical"
verbosity = "high"

[personas.reviewer]
role = "security reviewer"
tone = "stern"
style = "terse"
verbosity = "low"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore() error: %v", err)
	}

	pirate, ok := s.Get("pirate")
	if !ok {
		t.Fatal("user preset missing")
	}
	if pirate.Name != "pirate" || pirate.Tone != "boisterous" {
		t.Errorf("preset = %+v", pirate)
	}

	// A user preset overrides the built-in of the same name.
	reviewer, _ := s.Get("reviewer")
	if reviewer.Role != "security reviewer" {
		t.Errorf("reviewer role = %q, want user override", reviewer.Role)
	}

	persona := pirate.Persona()
	if persona.Role != "pirate" || persona.Verbosity != "high" {
		t.Errorf("Persona() = %+v", persona)
	}
}

func TestLoadStoreMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.toml")
	if err := os.WriteFile(path, []byte("[personas.broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadStore(path); err == nil {
		t.Error("LoadStore() expected error for malformed file")
	}
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.toml")

	if err := WriteStarter(path); err != nil {
		t.Fatalf("WriteStarter() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# qwen-cli persona presets") {
		t.Errorf("starter file missing header:\n%s", data)
	}

	// The starter round-trips through the loader.
	s, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore() on starter error: %v", err)
	}
	coach, ok := s.Get("writing-coach")
	if !ok || coach.Role != "writing coach" {
		t.Errorf("starter preset = %+v, %v", coach, ok)
	}

	// Re-running leaves an existing file alone.
	if err := os.WriteFile(path, []byte("# edited\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteStarter(path); err != nil {
		t.Fatalf("second WriteStarter() error: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "# edited\n" {
		t.Error("WriteStarter() overwrote existing file")
	}
}
