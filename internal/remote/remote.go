// Package remote defines the capability the sync engine needs from a comment
// backend. Implementations make one attempt per call; retrying is the
// caller's business.
package remote

import (
	"context"

	"github.com/evcraddock/slidenotes/internal/comment"
)

// Ack acknowledges an update with the timestamp the backend recorded.
type Ack struct {
	UpdatedAt string `json:"updatedAt"`
}

// Client reads and writes the comments of one deck.
type Client interface {
	// List returns the backend's full collection, normalized. Records
	// without a resolvable id are dropped.
	List(ctx context.Context) ([]comment.Comment, error)
	// Create stores c and returns it as the backend recorded it. A root
	// without a slide id is filed under defaultSlideID.
	Create(ctx context.Context, c comment.Comment, defaultSlideID string) (comment.Comment, error)
	// Update applies the non-nil fields of p.
	Update(ctx context.Context, p comment.Patch) (Ack, error)
	Delete(ctx context.Context, id string) error
}
