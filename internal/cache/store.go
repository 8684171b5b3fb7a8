// Package cache persists a deck's comment collection and its pending changes
// on the local machine. Reads and writes fail soft: problems are logged and
// the caller sees an empty value or nothing at all.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/evcraddock/slidenotes/internal/comment"
)

// Key returns the cache key of a deck's comment collection.
func Key(deckID string) string {
	return "sv:comments:" + deckID
}

// PendingKey returns the cache key of a deck's pending changes.
func PendingKey(deckID string) string {
	return Key(deckID) + ":pending"
}

// Store keeps one deck's blobs in the cache_entries table.
type Store struct {
	db     *sql.DB
	deckID string
	logger *slog.Logger
}

// NewStore creates a store for deckID. A nil logger uses slog.Default().
func NewStore(db *sql.DB, deckID string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, deckID: deckID, logger: logger.With("deck", deckID)}
}

// List returns the cached collection, or an empty slice when nothing usable
// is stored.
func (s *Store) List() []comment.Comment {
	var comments []comment.Comment
	if !s.get(Key(s.deckID), &comments) {
		return []comment.Comment{}
	}
	if comments == nil {
		comments = []comment.Comment{}
	}
	return comments
}

// PutAll overwrites the cached collection.
func (s *Store) PutAll(comments []comment.Comment) {
	if comments == nil {
		comments = []comment.Comment{}
	}
	s.put(Key(s.deckID), comments)
}

// GetPending returns the cached pending changes keyed by comment id.
func (s *Store) GetPending() map[string]json.RawMessage {
	var pending map[string]json.RawMessage
	if !s.get(PendingKey(s.deckID), &pending) || pending == nil {
		return map[string]json.RawMessage{}
	}
	return pending
}

// SetPending overwrites the cached pending changes.
func (s *Store) SetPending(pending map[string]json.RawMessage) {
	if pending == nil {
		pending = map[string]json.RawMessage{}
	}
	s.put(PendingKey(s.deckID), pending)
}

func (s *Store) get(key string, dst any) bool {
	var value string
	err := s.db.QueryRow("SELECT value FROM cache_entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		s.logger.Warn("reading cache entry", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		s.logger.Warn("malformed cache entry", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) put(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("encoding cache entry", "key", key, "error", err)
		return
	}
	_, err = s.db.Exec(
		`INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), comment.FormatTime(time.Now()),
	)
	if err != nil {
		s.logger.Warn("writing cache entry", "key", key, "error", err)
	}
}
