// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache stores one-shot ask responses in a local SQLite database so
// repeated identical prompts answer instantly without a model round trip.
// Entries are keyed by a digest of model, system prompt, prompt, and
// temperature, and expire after a TTL.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DefaultTTL is how long cached responses stay valid.
const DefaultTTL = 24 * time.Hour

const schema = `
CREATE TABLE IF NOT EXISTS responses (
    id TEXT PRIMARY KEY,
    cache_key TEXT NOT NULL UNIQUE,
    model TEXT NOT NULL,
    prompt TEXT NOT NULL,
    response TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL,
    hits INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_responses_expires ON responses(expires_at);
`

// Key identifies one cacheable request. Every field participates in the
// digest: a different temperature is a different entry.
type Key struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Temperature  float64
}

func (k Key) digest() string {
	h := sha256.New()
	h.Write([]byte(k.Model))
	h.Write([]byte{0})
	h.Write([]byte(k.SystemPrompt))
	h.Write([]byte{0})
	h.Write([]byte(k.Prompt))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(k.Temperature, 'g', -1, 64)))
	return hex.EncodeToString(h.Sum(nil))
}

// Store is the response cache.
type Store struct {
	db   *sql.DB
	path string
	ttl  time.Duration

	// now is the clock; tests substitute a fake.
	now func() time.Time
}

// Open opens (or creates) the cache database at path with the default TTL.
func Open(path string) (*Store, error) {
	return OpenWithTTL(path, DefaultTTL)
}

// OpenWithTTL opens the cache with a custom entry lifetime. Expired rows
// are pruned on open.
func OpenWithTTL(path string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
		ttl:  ttl,
		now:  time.Now,
	}

	if err := s.pruneExpired(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) pruneExpired() error {
	_, err := s.db.Exec("DELETE FROM responses WHERE expires_at < ?", s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}
	return nil
}

// Get returns the cached response for key, if present and unexpired. A hit
// bumps the entry's hit counter.
func (s *Store) Get(key Key) (string, bool, error) {
	digest := key.digest()

	var response string
	var expiresAt int64
	err := s.db.QueryRow(
		"SELECT response, expires_at FROM responses WHERE cache_key = ?",
		digest,
	).Scan(&response, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache: %w", err)
	}

	if expiresAt < s.now().Unix() {
		s.db.Exec("DELETE FROM responses WHERE cache_key = ?", digest)
		return "", false, nil
	}

	s.db.Exec("UPDATE responses SET hits = hits + 1 WHERE cache_key = ?", digest)
	return response, true, nil
}

// Put stores a response for key, replacing any prior entry.
func (s *Store) Put(key Key, response string) error {
	now := s.now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO responses (id, cache_key, model, prompt, response, created_at, expires_at, hits)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(cache_key) DO UPDATE SET
			response = excluded.response,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			hits = 0`,
		uuid.NewString(), key.digest(), key.Model, key.Prompt, response,
		now, now+int64(s.ttl.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries   int
	Hits      int64
	SizeBytes int64
}

// Stats reports entry count, accumulated hits, and database file size.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(hits), 0) FROM responses",
	).Scan(&st.Entries, &st.Hits)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	return st, nil
}

// Clear removes every cache entry and returns the number removed.
func (s *Store) Clear() (int64, error) {
	result, err := s.db.Exec("DELETE FROM responses")
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
