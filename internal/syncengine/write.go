package syncengine

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/slidenotes/internal/comment"
)

// fanOut bounds the backend calls issued for one cascade or import.
const fanOut = 4

// CreateRoot adds a new thread on slideID at (x, y). An empty slideID uses
// the configured default slide.
func (e *Engine) CreateRoot(slideID string, x, y float64, text string) (comment.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return comment.Comment{}, comment.ErrEmptyText
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return comment.Comment{}, ErrInvalidPosition
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkWritable(); err != nil {
		return comment.Comment{}, err
	}
	if slideID == "" {
		slideID = e.cfg.DefaultSlideID
	}

	now := comment.FormatTime(e.now())
	c := comment.Comment{
		ID:        comment.NewID(),
		Author:    e.cfg.Author,
		Text:      text,
		X:         comment.ClampPosition(x),
		Y:         comment.ClampPosition(y),
		SlideID:   slideID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return comment.Comment{}, err
	}

	e.insert(c)
	return c, nil
}

// CreateReply adds a reply to rootID. The reply takes the root's slide and
// position.
func (e *Engine) CreateReply(rootID, text string) (comment.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return comment.Comment{}, comment.ErrEmptyText
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkWritable(); err != nil {
		return comment.Comment{}, err
	}
	root, ok := comment.Find(e.comments.Peek(), rootID)
	if !ok {
		return comment.Comment{}, fmt.Errorf("comment %s: %w", rootID, ErrNotFound)
	}
	if !root.IsRoot() {
		return comment.Comment{}, fmt.Errorf("replying to %s: %w", rootID, ErrNotRoot)
	}

	now := comment.FormatTime(e.now())
	c := comment.Comment{
		ID:        comment.NewID(),
		ParentID:  root.ID,
		Author:    e.cfg.Author,
		Text:      text,
		X:         root.X,
		Y:         root.Y,
		SlideID:   root.SlideID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	e.insert(c)
	return c, nil
}

// insert appends c and sends it to the backend. Callers hold e.mu.
func (e *Engine) insert(c comment.Comment) {
	next := append(slices.Clone(e.comments.Peek()), c)
	e.comments.Set(next)

	e.track(c, false)
	e.savePending()

	done := e.startCreate(c.ID)
	e.dispatch("create", func(ctx context.Context) error {
		defer done()
		if _, err := e.remote.Create(ctx, c, c.SlideID); err != nil {
			return fmt.Errorf("creating comment %s: %w", c.ID, err)
		}
		e.confirm(c.ID, c.UpdatedAt)
		return nil
	})
}

// UpdateText replaces the text of a comment. Setting the current text again
// does nothing.
func (e *Engine) UpdateText(id, text string) (comment.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return comment.Comment{}, comment.ErrEmptyText
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkWritable(); err != nil {
		return comment.Comment{}, err
	}
	c, ok := comment.Find(e.comments.Peek(), id)
	if !ok {
		return comment.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if c.Text == text {
		return c, nil
	}

	c.Text = text
	return e.update(c, comment.Patch{ID: id, Text: &text}), nil
}

// SetResolved marks a thread resolved or open again. Setting the current
// state again does nothing.
func (e *Engine) SetResolved(id string, resolved bool) (comment.Comment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setResolved(id, func(bool) bool { return resolved })
}

// ToggleResolved flips the resolved state of a thread.
func (e *Engine) ToggleResolved(id string) (comment.Comment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setResolved(id, func(current bool) bool { return !current })
}

func (e *Engine) setResolved(id string, next func(bool) bool) (comment.Comment, error) {
	if err := e.checkWritable(); err != nil {
		return comment.Comment{}, err
	}
	c, ok := comment.Find(e.comments.Peek(), id)
	if !ok {
		return comment.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if !c.IsRoot() {
		return comment.Comment{}, fmt.Errorf("resolving %s: %w", id, ErrNotRoot)
	}
	resolved := next(c.Resolved)
	if resolved == c.Resolved {
		return c, nil
	}

	c.Resolved = resolved
	text := c.Text
	return e.update(c, comment.Patch{ID: id, Resolved: &resolved, Text: &text}), nil
}

// Move places a thread's marker at (x, y), clamped to the slide.
func (e *Engine) Move(id string, x, y float64) (comment.Comment, error) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return comment.Comment{}, ErrInvalidPosition
	}
	x, y = comment.ClampPosition(x), comment.ClampPosition(y)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkWritable(); err != nil {
		return comment.Comment{}, err
	}
	c, ok := comment.Find(e.comments.Peek(), id)
	if !ok {
		return comment.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if !c.IsRoot() {
		return comment.Comment{}, fmt.Errorf("moving %s: %w", id, ErrNotRoot)
	}
	if c.X == x && c.Y == y {
		return c, nil
	}

	c.X, c.Y = x, y
	return e.update(c, comment.Patch{ID: id, X: &x, Y: &y}), nil
}

// update stamps c, replaces it in the collection and sends p to the
// backend. Callers hold e.mu.
func (e *Engine) update(c comment.Comment, p comment.Patch) comment.Comment {
	c.UpdatedAt = comment.FormatTime(e.now())

	next := slices.Clone(e.comments.Peek())
	for i := range next {
		if next[i].ID == c.ID {
			next[i] = c
			break
		}
	}
	e.comments.Set(next)

	e.track(c, false)
	e.savePending()

	e.dispatch("update", func(ctx context.Context) error {
		if _, err := e.remote.Update(ctx, p); err != nil {
			return fmt.Errorf("updating comment %s: %w", c.ID, err)
		}
		e.confirm(c.ID, c.UpdatedAt)
		return nil
	})
	return c
}

// Delete removes a comment. Deleting a root removes its replies in the same
// change. It returns the ids removed.
func (e *Engine) Delete(id string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkWritable(); err != nil {
		return nil, err
	}
	current := e.comments.Peek()
	target, ok := comment.Find(current, id)
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}

	kept, removed := comment.WithoutThread(current, target.ID)
	e.comments.Set(kept)

	now := comment.FormatTime(e.now())
	byID := comment.Index(current)
	for _, rid := range removed {
		c := byID[rid]
		c.UpdatedAt = now
		e.track(c, true)
	}
	e.savePending()

	creating := make(map[string]chan struct{})
	for _, rid := range removed {
		if ch, ok := e.creating[rid]; ok {
			creating[rid] = ch
		}
	}

	e.dispatch("delete", func(ctx context.Context) error {
		var g errgroup.Group
		g.SetLimit(fanOut)
		for _, rid := range removed {
			rid := rid
			g.Go(func() error {
				// A create still on the wire must land before its delete.
				if ch, ok := creating[rid]; ok {
					select {
					case <-ch:
					case <-ctx.Done():
						return fmt.Errorf("deleting comment %s: %w", rid, ctx.Err())
					}
				}
				if err := e.remote.Delete(ctx, rid); err != nil {
					return fmt.Errorf("deleting comment %s: %w", rid, err)
				}
				e.confirm(rid, now)
				return nil
			})
		}
		return g.Wait()
	})

	return removed, nil
}

// startCreate records an outstanding backend create for id and returns the
// func that marks it finished. Nothing is recorded when no create will be
// sent. Callers hold e.mu; the returned func takes it.
func (e *Engine) startCreate(id string) func() {
	if !e.canSync() {
		return func() {}
	}
	ch := make(chan struct{})
	e.creating[id] = ch
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.creating[id] == ch {
			delete(e.creating, id)
		}
		close(ch)
	}
}

// checkWritable refuses writes while a mandatory backend is unavailable.
// Callers hold e.mu.
func (e *Engine) checkWritable() error {
	if !e.cfg.RequireBackend {
		return nil
	}
	if !e.canSync() || e.backendDown {
		e.setStatus(StatusOffline)
		return ErrBackendRequired
	}
	return nil
}

// dispatch runs call on its own goroutine unless the engine is local-only.
// The poll loop stays quiet for SkipPollWindow so it cannot merge a snapshot
// taken before the backend saw this write. Callers hold e.mu.
func (e *Engine) dispatch(op string, call func(ctx context.Context) error) {
	if !e.canSync() {
		return
	}

	e.skipPollUntil = e.now().Add(e.cfg.SkipPollWindow)
	e.setStatus(StatusSaving)
	if e.inflight == 0 {
		e.idle = make(chan struct{})
	}
	e.inflight++
	ctx := e.writeCtx

	go func() {
		err := call(ctx)

		e.mu.Lock()
		defer e.mu.Unlock()

		e.inflight--
		if e.inflight == 0 {
			close(e.idle)
		}
		if e.localOnly {
			return
		}
		if err != nil {
			e.logger.Warn("comment write failed, keeping it pending", "op", op, "error", err)
			e.setStatus(StatusError)
			return
		}
		e.setStatus(StatusSaved)
	}()
}
