// Package comment provides the slide comment domain model, its derived views
// and server-side data access.
package comment

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultPositionEpsilon is the tolerance below which two marker positions are
// considered the same.
const DefaultPositionEpsilon = 0.01

// ErrEmptyText is returned when a comment is created or edited without text.
var ErrEmptyText = errors.New("comment text is required")

// Comment is one annotation anchored to a slide surface. A comment with an
// empty ParentID is a root; otherwise it is a reply to exactly one root.
type Comment struct {
	ID        string  `json:"id"`
	ParentID  string  `json:"parentId"`
	Author    string  `json:"author"`
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	SlideID   string  `json:"slideId"`
	Resolved  bool    `json:"resolved"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// IsRoot reports whether c starts a thread.
func (c Comment) IsRoot() bool {
	return c.ParentID == ""
}

// Timestamp returns UpdatedAt, or CreatedAt when the comment was never
// updated.
func (c Comment) Timestamp() string {
	if c.UpdatedAt != "" {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// Time parses Timestamp. Unparseable or missing values yield the zero time.
func (c Comment) Time() time.Time {
	return ParseTime(c.Timestamp())
}

// Validate checks the fields required to create a comment.
func (c Comment) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("comment id is required")
	}
	if strings.TrimSpace(c.Text) == "" {
		return ErrEmptyText
	}
	if c.IsRoot() && c.SlideID == "" {
		return fmt.Errorf("slide id is required for comment %s", c.ID)
	}
	return nil
}

// NewID returns a fresh, time-sortable comment identifier.
func NewID() string {
	return "c" + strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}

// FormatTime renders t in the wire timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses a wire timestamp. Values without a zone offset are read as
// UTC. It returns the zero time when s cannot be parsed.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ClampPosition limits a percentage coordinate to [0, 100].
func ClampPosition(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// MateriallyDifferent reports whether the user-visible mutable fields of a and
// b differ: text, resolved state, or a position delta above eps.
func MateriallyDifferent(a, b Comment, eps float64) bool {
	return a.Text != b.Text ||
		a.Resolved != b.Resolved ||
		math.Abs(a.X-b.X) > eps ||
		math.Abs(a.Y-b.Y) > eps
}

// Digest summarizes a collection by id, timestamp, text length and resolved
// state. Two collections with the same digest are treated as unchanged.
// Order of the input does not matter.
func Digest(comments []Comment) string {
	parts := make([]string, len(comments))
	for i, c := range comments {
		parts[i] = fmt.Sprintf("%s:%s:%d:%t", c.ID, c.Timestamp(), utf8.RuneCountInString(c.Text), c.Resolved)
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Index maps comments by id.
func Index(comments []Comment) map[string]Comment {
	m := make(map[string]Comment, len(comments))
	for _, c := range comments {
		m[c.ID] = c
	}
	return m
}

// Find returns the comment with the given id.
func Find(comments []Comment, id string) (Comment, bool) {
	for _, c := range comments {
		if c.ID == id {
			return c, true
		}
	}
	return Comment{}, false
}
