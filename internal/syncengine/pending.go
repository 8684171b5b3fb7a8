package syncengine

import (
	"encoding/json"
	"log/slog"

	"github.com/evcraddock/slidenotes/internal/comment"
)

// PendingChange is a local write the backend has not confirmed. The
// embedded comment is the snapshot as last committed locally; its
// UpdatedAt is the time of the write. Deleted marks a delete intent.
type PendingChange struct {
	comment.Comment
	Deleted bool `json:"deleted,omitempty"`
}

// overlay returns the pending snapshot laid over the server record. Fields
// the snapshot never carried are taken from the server.
func (p PendingChange) overlay(server comment.Comment) comment.Comment {
	c := p.Comment
	if c.CreatedAt == "" {
		c.CreatedAt = server.CreatedAt
	}
	if c.SlideID == "" {
		c.SlideID = server.SlideID
	}
	if c.Author == "" {
		c.Author = server.Author
	}
	return c
}

// track records a pending change for c, stamped by the caller.
func (e *Engine) track(c comment.Comment, deleted bool) {
	e.pending[c.ID] = PendingChange{Comment: c, Deleted: deleted}
}

// confirm drops the pending change for id if it is still the one written at
// stamp. A later write to the same id keeps its own entry.
func (e *Engine) confirm(id, stamp string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.localOnly {
		return
	}
	if p, ok := e.pending[id]; ok && p.UpdatedAt == stamp {
		delete(e.pending, id)
		e.savePending()
	}
}

// savePending writes the pending map to the cache. Callers hold e.mu.
func (e *Engine) savePending() {
	raw := make(map[string]json.RawMessage, len(e.pending))
	for id, p := range e.pending {
		data, err := json.Marshal(p)
		if err != nil {
			e.logger.Warn("encoding pending change", "id", id, "error", err)
			continue
		}
		raw[id] = data
	}
	e.cache.SetPending(raw)
}

func decodePending(raw map[string]json.RawMessage, logger *slog.Logger) map[string]PendingChange {
	pending := make(map[string]PendingChange, len(raw))
	for id, data := range raw {
		var p PendingChange
		if err := json.Unmarshal(data, &p); err != nil {
			logger.Warn("dropping malformed pending change", "id", id, "error", err)
			continue
		}
		if p.ID == "" {
			p.ID = id
		}
		pending[id] = p
	}
	return pending
}
