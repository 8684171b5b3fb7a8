package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/evcraddock/slidenotes/internal/comment"
)

// SyncOptions controls one sync.
type SyncOptions struct {
	// Silent suppresses status transitions on success.
	Silent bool
	// Force merges even when the snapshot digest is unchanged.
	Force bool
}

// Sync lists the backend's collection and merges it into the local one.
// Only one sync runs at a time; a call made while another is running
// returns ErrSyncInFlight without contacting the backend.
func (e *Engine) Sync(ctx context.Context, opts SyncOptions) error {
	e.mu.Lock()
	if !e.canSync() {
		e.mu.Unlock()
		return ErrLocalOnly
	}
	if e.syncing {
		e.mu.Unlock()
		return ErrSyncInFlight
	}
	e.syncing = true
	if !opts.Silent && e.firstSync {
		e.setStatus(StatusSyncing)
	}
	e.mu.Unlock()

	server, err := e.remote.List(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncing = false

	if e.localOnly {
		return ErrLocalOnly
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.recordFailure(err)
		return fmt.Errorf("listing comments: %w", err)
	}

	e.apply(server, opts)
	return nil
}

// apply merges a fresh server snapshot. Callers hold e.mu.
func (e *Engine) apply(server []comment.Comment, opts SyncOptions) {
	digest := comment.Digest(server)
	if e.cfg.SkipUnchangedSnapshots && !opts.Force && digest == e.lastDigest {
		e.succeeded(opts.Silent)
		return
	}
	e.lastDigest = digest

	local := e.comments.Peek()
	res := Merge(server, local, e.pending, e.cfg.PositionEpsilon)

	if comment.Digest(res.Merged) != comment.Digest(local) {
		e.comments.Set(res.Merged)
	}

	for _, c := range res.Conflicts {
		e.logger.Warn("comment sync conflict, keeping server version",
			"id", c.Server.ID,
			"local_updated_at", c.Local.UpdatedAt,
			"server_updated_at", c.Server.UpdatedAt,
			"local_text", c.Local.Text,
			"server_text", c.Server.Text,
		)
	}
	if len(res.DeletedFromServer) > 0 {
		e.logger.Info("comments deleted on server", "ids", res.DeletedFromServer)
	}

	if e.prunePending(server) {
		e.savePending()
	}

	e.succeeded(opts.Silent)
}

// prunePending drops the pending changes a server snapshot settles: writes
// whose id the server now has, and deletes whose id the server no longer
// has or has since updated. It reports whether anything was dropped.
func (e *Engine) prunePending(server []comment.Comment) bool {
	byID := comment.Index(server)
	changed := false
	for id, p := range e.pending {
		s, onServer := byID[id]
		drop := onServer
		if p.Deleted {
			drop = !onServer || s.Time().After(p.Time())
		}
		if drop {
			delete(e.pending, id)
			changed = true
		}
	}
	return changed
}

func (e *Engine) succeeded(silent bool) {
	recovered := e.degraded || e.backendDown
	e.failures = 0
	e.degraded = false
	e.backendDown = false
	e.firstSync = false
	if !silent || recovered {
		e.setStatus(StatusSynced)
	}
}

func (e *Engine) recordFailure(err error) {
	e.failures++
	e.logger.Warn("comment sync failed", "failures", e.failures, "error", err)

	if e.cfg.RequireBackend {
		e.backendDown = true
		e.setStatus(StatusOffline)
		return
	}
	if e.failures >= e.cfg.FallbackAfter {
		e.demote()
		return
	}
	if e.failures >= e.cfg.ErrorAfter {
		e.degraded = true
		e.setStatus(StatusError)
	}
}

// demote switches to local-only mode for the rest of the engine's life.
// Backend calls already in flight finish but their results are ignored.
func (e *Engine) demote() {
	e.localOnly = true
	e.setStatus(StatusLocal)
	e.logger.Warn("comment backend unavailable, switching to local-only mode; use export and import to share comments",
		"failures", e.failures)
}

func (e *Engine) pollLoop(ctx context.Context) {
	defer e.loop.Done()

	if err := e.Sync(ctx, SyncOptions{}); err != nil && ctx.Err() == nil {
		e.logger.Debug("initial sync", "error", err)
	}

	if e.cfg.PollInterval <= 0 {
		return
	}

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.shouldPoll() {
				continue
			}
			if err := e.Sync(ctx, SyncOptions{Silent: true}); err != nil && ctx.Err() == nil {
				e.logger.Debug("poll", "error", err)
			}
		}
	}
}

func (e *Engine) shouldPoll() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canSync() && !e.syncing && !e.now().Before(e.skipPollUntil)
}
