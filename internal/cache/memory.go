package cache

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/evcraddock/slidenotes/internal/comment"
)

// Memory is an in-process store with the same contract as Store. Values are
// kept encoded so callers never share slices or maps with it.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]byte
	logger  *slog.Logger
}

// NewMemory creates an empty in-memory store. A nil logger uses
// slog.Default().
func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{entries: make(map[string][]byte), logger: logger}
}

const (
	memoryCollection = "collection"
	memoryPending    = "pending"
)

// List returns the stored collection.
func (m *Memory) List() []comment.Comment {
	comments := []comment.Comment{}
	m.get(memoryCollection, &comments)
	if comments == nil {
		comments = []comment.Comment{}
	}
	return comments
}

// PutAll overwrites the stored collection.
func (m *Memory) PutAll(comments []comment.Comment) {
	m.put(memoryCollection, comments)
}

// GetPending returns the stored pending changes.
func (m *Memory) GetPending() map[string]json.RawMessage {
	pending := map[string]json.RawMessage{}
	m.get(memoryPending, &pending)
	if pending == nil {
		pending = map[string]json.RawMessage{}
	}
	return pending
}

// SetPending overwrites the stored pending changes.
func (m *Memory) SetPending(pending map[string]json.RawMessage) {
	m.put(memoryPending, pending)
}

func (m *Memory) get(key string, dst any) {
	m.mu.Lock()
	data, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		m.logger.Warn("malformed cache entry", "key", key, "error", err)
	}
}

func (m *Memory) put(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("encoding cache entry", "key", key, "error", err)
		return
	}
	m.mu.Lock()
	m.entries[key] = data
	m.mu.Unlock()
}
