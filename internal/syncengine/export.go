package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/slidenotes/internal/comment"
)

// Export returns the collection as indented JSON, the format Import reads.
func (e *Engine) Export() ([]byte, error) {
	e.mu.Lock()
	comments := e.comments.Peek()
	e.mu.Unlock()

	data, err := json.MarshalIndent(comments, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding comments: %w", err)
	}
	return data, nil
}

// Import adds the comments in data whose ids are not in the collection yet
// and returns how many were added. Entries are checked the way new comments
// are: text is trimmed and required, positions are clamped, a root without a
// slide lands on the default slide and a reply needs a root that exists or
// is imported alongside it. Invalid entries are skipped with a warning.
// Imported comments go through the same pending and backend path as new ones.
func (e *Engine) Import(data []byte) (int, error) {
	var incoming []comment.Comment
	if err := json.Unmarshal(data, &incoming); err != nil {
		return 0, fmt.Errorf("decoding comments: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkWritable(); err != nil {
		return 0, err
	}

	current := e.comments.Peek()
	known := comment.Index(current)
	now := comment.FormatTime(e.now())

	// Roots first, so a reply may precede its root in the file.
	slices.SortStableFunc(incoming, func(a, b comment.Comment) int {
		switch {
		case a.IsRoot() == b.IsRoot():
			return 0
		case a.IsRoot():
			return -1
		default:
			return 1
		}
	})

	var added []comment.Comment
	for _, c := range incoming {
		if c.ID == "" {
			e.logger.Warn("skipping imported comment", "reason", "missing id")
			continue
		}
		if _, ok := known[c.ID]; ok {
			continue
		}
		c, err := e.prepareImport(c, known, now)
		if err != nil {
			e.logger.Warn("skipping imported comment", "id", c.ID, "error", err)
			continue
		}
		known[c.ID] = c
		added = append(added, c)
	}
	if len(added) == 0 {
		return 0, nil
	}

	e.comments.Set(append(slices.Clone(current), added...))
	dones := make([]func(), len(added))
	for i, c := range added {
		e.track(c, false)
		dones[i] = e.startCreate(c.ID)
	}
	e.savePending()

	e.dispatch("import", func(ctx context.Context) error {
		var g errgroup.Group
		g.SetLimit(fanOut)
		for i, c := range added {
			i, c := i, c
			g.Go(func() error {
				defer dones[i]()
				if _, err := e.remote.Create(ctx, c, c.SlideID); err != nil {
					return fmt.Errorf("creating comment %s: %w", c.ID, err)
				}
				e.confirm(c.ID, c.UpdatedAt)
				return nil
			})
		}
		return g.Wait()
	})

	return len(added), nil
}

// prepareImport normalizes one imported comment against the comments known
// so far. Callers hold e.mu.
func (e *Engine) prepareImport(c comment.Comment, known map[string]comment.Comment, now string) (comment.Comment, error) {
	c.Text = strings.TrimSpace(c.Text)
	if c.Text == "" {
		return c, comment.ErrEmptyText
	}
	c.X = comment.ClampPosition(c.X)
	c.Y = comment.ClampPosition(c.Y)

	if c.IsRoot() {
		if c.SlideID == "" {
			c.SlideID = e.cfg.DefaultSlideID
		}
	} else {
		parent, ok := known[c.ParentID]
		if !ok {
			return c, fmt.Errorf("parent %s: %w", c.ParentID, ErrNotFound)
		}
		if !parent.IsRoot() {
			return c, fmt.Errorf("replying to %s: %w", c.ParentID, ErrNotRoot)
		}
		if c.SlideID == "" {
			c.SlideID = parent.SlideID
		}
	}

	if c.CreatedAt == "" {
		c.CreatedAt = now
	}
	if c.UpdatedAt == "" {
		c.UpdatedAt = c.CreatedAt
	}
	return c, c.Validate()
}
