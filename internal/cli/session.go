package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/evcraddock/slidenotes/internal/cache"
	"github.com/evcraddock/slidenotes/internal/client"
	"github.com/evcraddock/slidenotes/internal/comment"
	"github.com/evcraddock/slidenotes/internal/remote"
	"github.com/evcraddock/slidenotes/internal/syncengine"
)

// session is one command's view of a deck: the cache database and an
// engine hydrated from it.
type session struct {
	db       *sql.DB
	engine   *syncengine.Engine
	settings settings
}

// openSession hydrates the deck's engine from the cache. With initialSync
// set it also pulls the backend once; a failed pull is reported and the
// command carries on from the cache.
func openSession(ctx context.Context, initialSync bool) (*session, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}

	rc, err := newRemote(s)
	if err != nil {
		return nil, err
	}

	database, err := openCache()
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	e := syncengine.New(s.Engine, cache.NewStore(database, s.Deck, slog.Default()), rc)
	e.Hydrate()

	if initialSync {
		err := e.Sync(ctx, syncengine.SyncOptions{})
		if err != nil && !errors.Is(err, syncengine.ErrLocalOnly) {
			fmt.Fprintf(os.Stderr, "warning: sync failed, using cached comments: %v\n", err)
		}
	}

	return &session{db: database, engine: e, settings: s}, nil
}

// close waits for backend writes, flushes the cache and closes it.
func (s *session) close() {
	s.engine.Close()
	if s.engine.Status() == syncengine.StatusError {
		fmt.Fprintln(os.Stderr, "warning: some changes were not accepted by the backend; they are kept locally")
	}
	closeDB(s.db)
}

// newRemote builds the backend client, or returns nil when no backend is
// configured.
func newRemote(s settings) (remote.Client, error) {
	ep := s.endpoints()
	if ep == (client.Endpoints{}) {
		return nil, nil
	}

	c, err := client.New(ep, s.APIKey, client.Options{
		PlaceholderAuthors: s.PlaceholderAuthors,
		Logger:             slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("configuring backend: %w", err)
	}
	return c, nil
}

// resolveID expands a unique id prefix to the full comment id.
func resolveID(comments []comment.Comment, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("comment id is required")
	}

	var matches []string
	for _, c := range comments {
		if c.ID == prefix {
			return c.ID, nil
		}
		if strings.HasPrefix(c.ID, prefix) {
			matches = append(matches, c.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("comment %s: %w", prefix, syncengine.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("id prefix %s is ambiguous (%d comments match)", prefix, len(matches))
	}
}
