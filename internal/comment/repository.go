package comment

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a comment id does not exist.
var ErrNotFound = errors.New("comment not found")

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	ID       string   `json:"id"`
	Text     *string  `json:"text,omitempty"`
	Resolved *bool    `json:"resolved,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
}

// Apply returns c with the patch fields applied.
func (p Patch) Apply(c Comment) Comment {
	if p.Text != nil {
		c.Text = *p.Text
	}
	if p.Resolved != nil {
		c.Resolved = *p.Resolved
	}
	if p.X != nil {
		c.X = *p.X
	}
	if p.Y != nil {
		c.Y = *p.Y
	}
	return c
}

// Repository stores the comments of every deck on the reference backend.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a comment repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

const selectColumns = "id, parent_id, author, text, x, y, slide_id, resolved, created_at, updated_at"

// Upsert stores c under deckID and stamps UpdatedAt with the server clock.
// CreatedAt is kept from the client when present.
func (r *Repository) Upsert(deckID string, c Comment) (*Comment, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	now := FormatTime(r.now())
	if c.CreatedAt == "" {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO comments (id, deck_id, parent_id, author, text, x, y, slide_id, resolved, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			author = excluded.author,
			text = excluded.text,
			x = excluded.x,
			y = excluded.y,
			slide_id = excluded.slide_id,
			resolved = excluded.resolved,
			updated_at = excluded.updated_at`,
		c.ID, deckID, c.ParentID, c.Author, c.Text, c.X, c.Y, c.SlideID, c.Resolved, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting comment: %w", err)
	}

	return &c, nil
}

// Get returns one comment of deckID.
func (r *Repository) Get(deckID, id string) (*Comment, error) {
	row := r.db.QueryRow(
		"SELECT "+selectColumns+" FROM comments WHERE deck_id = ? AND id = ?", deckID, id,
	)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading comment: %w", err)
	}
	return c, nil
}

// ListByDeck returns every comment of deckID, oldest first.
func (r *Repository) ListByDeck(deckID string) (comments []*Comment, err error) {
	rows, err := r.db.Query(
		"SELECT "+selectColumns+" FROM comments WHERE deck_id = ? ORDER BY created_at, id",
		deckID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}

	return comments, nil
}

// Update applies p to an existing comment and stamps UpdatedAt.
func (r *Repository) Update(deckID string, p Patch) (*Comment, error) {
	c, err := r.Get(deckID, p.ID)
	if err != nil {
		return nil, err
	}

	next := p.Apply(*c)
	if next.Text == "" {
		return nil, ErrEmptyText
	}
	next.UpdatedAt = FormatTime(r.now())

	_, err = r.db.Exec(
		`UPDATE comments SET text = ?, resolved = ?, x = ?, y = ?, updated_at = ?
		 WHERE deck_id = ? AND id = ?`,
		next.Text, next.Resolved, next.X, next.Y, next.UpdatedAt, deckID, next.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating comment: %w", err)
	}

	return &next, nil
}

// Delete removes a comment by ID.
func (r *Repository) Delete(deckID, id string) error {
	result, err := r.db.Exec("DELETE FROM comments WHERE deck_id = ? AND id = ?", deckID, id)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(s scanner) (*Comment, error) {
	var c Comment
	if err := s.Scan(&c.ID, &c.ParentID, &c.Author, &c.Text, &c.X, &c.Y, &c.SlideID, &c.Resolved, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
