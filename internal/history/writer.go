// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Writer appends turns to the active transcript segment, rotating to the
// next index before a write would push the segment past maxBytes. The only
// bytes written to a segment are serialized turns, so segment sizes always
// sum to the serialized turn sizes.
type Writer struct {
	dir      string
	title    string // filename-safe form
	date     string
	maxBytes int64

	index int
	path  string
	file  *os.File
	size  int64

	// OnRotate, if set, is called with the new segment path after each
	// rotation.
	OnRotate func(path string)
}

// NewWriter opens a transcript writer under dir for the given title,
// creating the directory if needed. It resumes the highest existing segment
// index for today's date so a restarted session keeps appending where the
// previous one stopped. A maxBytes of 0 disables rotation.
func NewWriter(dir, title string, maxBytes int64) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	w := &Writer{
		dir:      dir,
		title:    SafeTitle(title),
		date:     time.Now().Format("2006-01-02"),
		maxBytes: maxBytes,
	}
	w.index = NextIndex(dir, w.title, w.date)

	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) open() error {
	path := filepath.Join(w.dir, segmentName(w.title, w.date, w.index))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history segment: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat history segment: %w", err)
	}

	w.file = f
	w.path = path
	w.size = info.Size()
	return nil
}

// Append serializes turn as one JSON line and writes it to the active
// segment. When the line would push the segment past maxBytes, the writer
// rotates first; a single turn larger than maxBytes still lands whole in a
// fresh segment.
func (w *Writer) Append(turn Turn) error {
	if w.file == nil {
		return &SessionError{Message: "history writer is closed"}
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}
	line := append(data, '\n')

	if w.maxBytes > 0 && w.size > 0 && w.size+int64(len(line)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	n, err := w.file.Write(line)
	w.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

func (w *Writer) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close history segment: %w", err)
	}
	w.file = nil

	w.index++
	if err := w.open(); err != nil {
		return err
	}

	if w.OnRotate != nil {
		w.OnRotate(w.path)
	}
	return nil
}

// Rotate advances to the next segment regardless of size. The chat loop
// calls this on a context reset so the cleared conversation starts a fresh
// segment; nothing is written to it until the next turn.
func (w *Writer) Rotate() error {
	if w.file == nil {
		return &SessionError{Message: "history writer is closed"}
	}
	return w.rotate()
}

// Path returns the active segment path.
func (w *Writer) Path() string {
	return w.path
}

// Index returns the active segment's rotation index.
func (w *Writer) Index() int {
	return w.index
}

// Close releases the active segment file. Further appends fail.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// NextIndex scans dir for segments matching the title and date and returns
// the highest existing rotation index, or 1 when none exist.
func NextIndex(dir, safeTitle, date string) int {
	pattern := filepath.Join(dir, fmt.Sprintf("%s-%s-*.jsonl", safeTitle, date))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 1
	}

	maxIndex := 0
	for _, m := range matches {
		stem := strings.TrimSuffix(filepath.Base(m), ".jsonl")
		parts := strings.Split(stem, "-")
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err == nil && n > maxIndex {
			maxIndex = n
		}
	}

	if maxIndex < 1 {
		return 1
	}
	return maxIndex
}

func segmentName(safeTitle, date string, index int) string {
	return fmt.Sprintf("%s-%s-%d.jsonl", safeTitle, date, index)
}
