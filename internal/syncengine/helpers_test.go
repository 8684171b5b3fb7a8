package syncengine

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evcraddock/slidenotes/internal/cache"
	"github.com/evcraddock/slidenotes/internal/comment"
	"github.com/evcraddock/slidenotes/internal/remote"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// at returns the wire timestamp sec seconds after t0.
func at(sec int) string {
	return comment.FormatTime(t0.Add(time.Duration(sec) * time.Second))
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeRemote is an in-memory backend. Writes block while gate is set.
type fakeRemote struct {
	mu        sync.Mutex
	server    []comment.Comment
	listErr   error
	writeErr  error
	gate      chan struct{}
	listGate  chan struct{}
	listEnter chan struct{}

	listCalls int
	created   []comment.Comment
	patches   []comment.Patch
	deleted   []string
	// calls records each completed write as "create <id>" or "delete <id>".
	calls []string
}

var _ remote.Client = (*fakeRemote)(nil)

func (f *fakeRemote) setServer(comments ...comment.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.server = comments
}

func (f *fakeRemote) hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

func (f *fakeRemote) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

func (f *fakeRemote) wait() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeRemote) List(ctx context.Context) ([]comment.Comment, error) {
	f.mu.Lock()
	f.listCalls++
	enter, gate := f.listEnter, f.listGate
	f.mu.Unlock()

	if enter != nil {
		enter <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.server), nil
}

func (f *fakeRemote) Create(ctx context.Context, c comment.Comment, defaultSlideID string) (comment.Comment, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return comment.Comment{}, f.writeErr
	}
	f.created = append(f.created, c)
	f.calls = append(f.calls, "create "+c.ID)
	return c, nil
}

func (f *fakeRemote) Update(ctx context.Context, p comment.Patch) (remote.Ack, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return remote.Ack{}, f.writeErr
	}
	f.patches = append(f.patches, p)
	return remote.Ack{UpdatedAt: "ack"}, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deleted = append(f.deleted, id)
	f.calls = append(f.calls, "delete "+id)
	return nil
}

func (f *fakeRemote) counts() (lists, creates, updates, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, len(f.created), len(f.patches), len(f.deleted)
}

// syncBuffer is a log sink safe for the engine's background goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	engine *Engine
	cache  *cache.Memory
	remote *fakeRemote
	clock  *testClock
	logs   *syncBuffer
}

// newHarness builds a hydrated engine. A nil fr gives a local-only engine.
func newHarness(t *testing.T, fr *fakeRemote, configure ...func(*Config)) *harness {
	t.Helper()

	h := &harness{
		cache:  cache.NewMemory(nil),
		remote: fr,
		clock:  &testClock{t: t0},
		logs:   &syncBuffer{},
	}

	cfg := DefaultConfig()
	cfg.PollInterval = 0
	cfg.Author = "tester"
	cfg.Now = h.clock.Now
	cfg.Logger = slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	for _, fn := range configure {
		fn(&cfg)
	}

	var client remote.Client
	if fr != nil {
		client = fr
	}
	h.engine = New(cfg, h.cache, client)
	h.engine.Hydrate()
	t.Cleanup(func() {
		if fr != nil {
			fr.release()
		}
		h.engine.Close()
	})
	return h
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.engine.Wait(ctx))
}

func (h *harness) find(t *testing.T, id string) comment.Comment {
	t.Helper()
	c, ok := comment.Find(h.engine.Comments(), id)
	require.True(t, ok, "comment %s not in collection", id)
	return c
}
