// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persona manages persona presets: named bundles of role, tone,
// style, and verbosity that shape the system prompt. Built-in presets are
// always available; users add their own in <workspace>/personas.toml.
package persona

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/qwen-cli/internal/config"
)

// Preset is one named persona.
type Preset struct {
	Name        string `toml:"-"`
	Description string `toml:"description"`
	Role        string `toml:"role"`
	Tone        string `toml:"tone"`
	Style       string `toml:"style"`
	Verbosity   string `toml:"verbosity"`
}

// Persona converts the preset to the config sub-record.
func (p Preset) Persona() config.Persona {
	return config.Persona{
		Role:      p.Role,
		Tone:      p.Tone,
		Style:     p.Style,
		Verbosity: p.Verbosity,
	}
}

// builtins ship with the binary and are always listed.
var builtins = []Preset{
	{
		Name:        "assistant",
		Description: "General-purpose helper (the default persona)",
		Role:        "assistant",
		Tone:        "neutral",
		Style:       "concise",
		Verbosity:   "normal",
	},
	{
		Name:        "tutor",
		Description: "Patient explainer that works through steps",
		Role:        "tutor",
		Tone:        "encouraging",
		Style:       "step-by-step",
		Verbosity:   "high",
	},
	{
		Name:        "reviewer",
		Description: "Blunt code and prose reviewer",
		Role:        "reviewer",
		Tone:        "direct",
		Style:       "terse",
		Verbosity:   "low",
	},
	{
		Name:        "creative",
		Description: "Loose brainstorming partner",
		Role:        "brainstorming partner",
		Tone:        "playful",
		Style:       "vivid",
		Verbosity:   "high",
	},
}

// presetFile is the on-disk shape of personas.toml.
type presetFile struct {
	Personas map[string]Preset `toml:"personas"`
}

// Store holds the merged preset set.
type Store struct {
	presets map[string]Preset
}

// LoadStore merges built-in presets with user presets from path. A user
// preset with a built-in's name overrides it. A missing file yields the
// builtins alone; a malformed file is an error.
func LoadStore(path string) (*Store, error) {
	s := &Store{presets: make(map[string]Preset, len(builtins))}
	for _, p := range builtins {
		s.presets[p.Name] = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	var file presetFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to decode personas file %s: %w", path, err)
	}

	for name, p := range file.Personas {
		p.Name = name
		s.presets[name] = p
	}
	return s, nil
}

// Get returns the preset with the given name.
func (s *Store) Get(name string) (Preset, bool) {
	p, ok := s.presets[name]
	return p, ok
}

// Names returns all preset names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all presets in name order.
func (s *Store) List() []Preset {
	names := s.Names()
	presets := make([]Preset, 0, len(names))
	for _, name := range names {
		presets = append(presets, s.presets[name])
	}
	return presets
}

// WriteStarter seeds a personas.toml with a commented example so users have
// a template to edit. Existing files are left alone.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create personas file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# qwen-cli persona presets")
	fmt.Fprintln(file, "# Presets defined here are merged with the built-ins;")
	fmt.Fprintln(file, "# apply one with: qwen persona use <name>")
	fmt.Fprintln(file, "")

	starter := presetFile{
		Personas: map[string]Preset{
			"writing-coach": {
				Description: "Supportive editor for prose drafts",
				Role:        "writing coach",
				Tone:        "encouraging",
				Style:       "structured",
				Verbosity:   "high",
			},
		},
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(starter); err != nil {
		return fmt.Errorf("failed to encode personas file: %w", err)
	}
	return nil
}
