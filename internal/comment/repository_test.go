package comment

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/slidenotes/internal/db"
)

func TestUpsertAndListByDeck(t *testing.T) {
	repo := testSetup(t)

	c, err := repo.Upsert("deck", Comment{ID: "c1", Text: "Nice chart", SlideID: "s1", X: 10, Y: 20})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if c.UpdatedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("updatedAt = %q, want server clock", c.UpdatedAt)
	}
	if c.CreatedAt != c.UpdatedAt {
		t.Errorf("createdAt = %q, want %q", c.CreatedAt, c.UpdatedAt)
	}

	comments, err := repo.ListByDeck("deck")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("got %d comments, want 1", len(comments))
	}
	got := comments[0]
	if got.Text != "Nice chart" || got.SlideID != "s1" || got.X != 10 || got.Y != 20 {
		t.Errorf("listed comment = %+v", got)
	}
}

func TestUpsertKeepsClientCreatedAt(t *testing.T) {
	repo := testSetup(t)

	c, err := repo.Upsert("deck", Comment{ID: "c1", Text: "x", SlideID: "s1", CreatedAt: "2025-12-31T00:00:00Z"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if c.CreatedAt != "2025-12-31T00:00:00Z" {
		t.Errorf("createdAt = %q", c.CreatedAt)
	}
}

func TestUpsertEmptyText(t *testing.T) {
	repo := testSetup(t)

	_, err := repo.Upsert("deck", Comment{ID: "c1", SlideID: "s1"})
	if !errors.Is(err, ErrEmptyText) {
		t.Fatalf("err = %v, want ErrEmptyText", err)
	}
}

func TestListByDeckIsolated(t *testing.T) {
	repo := testSetup(t)

	if _, err := repo.Upsert("a", Comment{ID: "c1", Text: "in a", SlideID: "s1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	comments, err := repo.ListByDeck("b")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("got %d comments, want 0", len(comments))
	}
}

func TestUpdatePartial(t *testing.T) {
	repo := testSetup(t)

	if _, err := repo.Upsert("deck", Comment{ID: "c1", Text: "draft", SlideID: "s1", X: 5, Y: 5}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	repo.now = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }
	resolved := true
	c, err := repo.Update("deck", Patch{ID: "c1", Resolved: &resolved})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !c.Resolved {
		t.Error("expected resolved")
	}
	if c.Text != "draft" || c.X != 5 {
		t.Errorf("unpatched fields changed: %+v", c)
	}
	if c.UpdatedAt != "2026-01-03T00:00:00Z" {
		t.Errorf("updatedAt = %q", c.UpdatedAt)
	}

	stored, err := repo.Get("deck", "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.Resolved {
		t.Error("expected stored comment resolved")
	}
}

func TestUpdateNotFound(t *testing.T) {
	repo := testSetup(t)

	text := "x"
	_, err := repo.Update("deck", Patch{ID: "missing", Text: &text})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	repo := testSetup(t)

	if _, err := repo.Upsert("deck", Comment{ID: "c1", Text: "gone soon", SlideID: "s1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := repo.Delete("deck", "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	comments, err := repo.ListByDeck("deck")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("got %d comments after delete, want 0", len(comments))
	}
}

func TestDeleteNotFound(t *testing.T) {
	repo := testSetup(t)

	err := repo.Delete("deck", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// testSetup creates a test DB and returns a comment repo with a fixed clock.
func testSetup(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	repo := NewRepository(d)
	repo.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return repo
}
