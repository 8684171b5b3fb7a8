// Package syncengine keeps one deck's comments available offline and
// reconciles them with a polled backend.
//
// Local writes are applied to the collection signal first, recorded as
// pending changes and then sent to the backend in the background. A poll
// loop lists the backend's collection and merges it with the local one,
// using the pending changes to decide which side wins for each comment.
// After repeated poll failures the engine gives up on the backend for the
// rest of its life and keeps working from the local cache.
//
// All reactive state lives in one reactive.Runtime guarded by the engine's
// mutex. Backend calls run on their own goroutines without the lock.
package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/evcraddock/slidenotes/internal/comment"
	"github.com/evcraddock/slidenotes/internal/reactive"
	"github.com/evcraddock/slidenotes/internal/remote"
)

var (
	// ErrNotFound is returned when a write names an unknown comment.
	ErrNotFound = errors.New("comment not found")
	// ErrNotRoot is returned when a root-only operation targets a reply.
	ErrNotRoot = errors.New("comment is a reply")
	// ErrInvalidPosition is returned for coordinates that are not numbers.
	ErrInvalidPosition = errors.New("invalid marker position")
	// ErrBackendRequired is returned for writes while a mandatory backend
	// is unavailable.
	ErrBackendRequired = errors.New("comments require a connection to the backend")
	// ErrLocalOnly is returned by Sync when the engine has no usable backend.
	ErrLocalOnly = errors.New("engine is in local-only mode")
	// ErrSyncInFlight is returned by Sync when another sync is running. The
	// request is dropped, not queued.
	ErrSyncInFlight = errors.New("sync already in flight")
)

// Status is the user-visible sync state.
type Status string

// Sync states.
const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusSaving  Status = "saving"
	StatusSaved   Status = "saved"
	StatusError   Status = "error"
	StatusLocal   Status = "local"
	StatusOffline Status = "offline"
)

// Cache is the local persistence the engine reads once at hydrate and
// writes on every settled change. Implementations fail soft.
type Cache interface {
	List() []comment.Comment
	PutAll(comments []comment.Comment)
	GetPending() map[string]json.RawMessage
	SetPending(pending map[string]json.RawMessage)
}

// Config holds engine settings. Start from DefaultConfig.
type Config struct {
	// PollInterval is the time between background syncs. Zero disables
	// polling.
	PollInterval time.Duration
	// ErrorAfter consecutive sync failures surface StatusError.
	ErrorAfter int
	// FallbackAfter consecutive sync failures switch to local-only mode,
	// unless RequireBackend is set.
	FallbackAfter int
	// PositionEpsilon is the position delta below which two markers are
	// considered at the same place.
	PositionEpsilon float64
	// SkipUnchangedSnapshots skips the merge when the backend's snapshot
	// digest equals the last one observed.
	SkipUnchangedSnapshots bool
	// SkipPollWindow suspends polling after each local write so a poll
	// cannot race the write's own echo.
	SkipPollWindow time.Duration
	// PersistDebounce delays cache writes until the collection has been
	// quiet this long. Zero writes synchronously.
	PersistDebounce time.Duration
	// RequireBackend refuses writes while the backend is unavailable and
	// never falls back to local-only mode.
	RequireBackend bool
	// Author is stamped on new comments.
	Author string
	// DefaultSlideID files roots created without a slide id.
	DefaultSlideID string

	Logger *slog.Logger
	Now    func() time.Time
}

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return Config{
		PollInterval:           time.Second,
		ErrorAfter:             3,
		FallbackAfter:          10,
		PositionEpsilon:        comment.DefaultPositionEpsilon,
		SkipUnchangedSnapshots: true,
		SkipPollWindow:         5 * time.Second,
	}
}

// Engine owns one deck's comment collection.
type Engine struct {
	cfg    Config
	cache  Cache
	remote remote.Client
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	rt         *reactive.Runtime
	comments   *reactive.Signal[[]comment.Comment]
	hydrated   *reactive.Signal[bool]
	status     *reactive.Signal[Status]
	roots      *reactive.Memo[int]
	unresolved *reactive.Memo[int]
	persist    *reactive.Effect

	pending       map[string]PendingChange
	syncing       bool
	lastDigest    string
	failures      int
	degraded      bool
	backendDown   bool
	localOnly     bool
	firstSync     bool
	skipPollUntil time.Time

	writeCtx context.Context
	inflight int
	idle     chan struct{}
	// creating holds a channel per id whose backend create has not returned.
	creating map[string]chan struct{}

	persistMu    sync.Mutex
	persistTimer *time.Timer
	persistDue   []comment.Comment
	persistQueue bool

	cancelLoop context.CancelFunc
	loop       sync.WaitGroup
}

// New creates an engine over cache. A nil client runs the engine in
// local-only mode from the start.
func New(cfg Config, cache Cache, client remote.Client) *Engine {
	def := DefaultConfig()
	if cfg.ErrorAfter <= 0 {
		cfg.ErrorAfter = def.ErrorAfter
	}
	if cfg.FallbackAfter <= 0 {
		cfg.FallbackAfter = def.FallbackAfter
	}
	if cfg.PositionEpsilon < 0 {
		cfg.PositionEpsilon = def.PositionEpsilon
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	e := &Engine{
		cfg:       cfg,
		cache:     cache,
		remote:    client,
		logger:    cfg.Logger,
		now:       cfg.Now,
		rt:        reactive.NewRuntime(),
		pending:   make(map[string]PendingChange),
		creating:  make(map[string]chan struct{}),
		localOnly: client == nil,
		firstSync: true,
		writeCtx:  context.Background(),
	}

	initial := StatusIdle
	if e.localOnly {
		initial = e.unavailableStatus()
	}

	e.comments = reactive.NewSignal(e.rt, []comment.Comment{})
	e.hydrated = reactive.NewSignal(e.rt, false).WithEquals(func(a, b bool) bool { return a == b })
	e.status = reactive.NewSignal(e.rt, initial).WithEquals(func(a, b Status) bool { return a == b })
	e.roots = reactive.NewMemo(e.rt, func() int {
		return comment.CountRoots(e.comments.Get())
	}).WithEquals(func(a, b int) bool { return a == b })
	e.unresolved = reactive.NewMemo(e.rt, func() int {
		return comment.CountUnresolvedRoots(e.comments.Get())
	}).WithEquals(func(a, b int) bool { return a == b })
	e.persist = reactive.NewEffect(e.rt, func() {
		if !e.hydrated.Get() {
			return
		}
		e.schedulePersist(e.comments.Get())
	})

	return e
}

// Hydrate loads the cached collection and pending changes. It runs once;
// later calls do nothing.
func (e *Engine) Hydrate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hydrated.Peek() {
		return
	}

	cached := e.cache.List()
	e.pending = decodePending(e.cache.GetPending(), e.logger)
	e.rt.Batch(func() {
		e.comments.Set(cached)
		e.hydrated.Set(true)
	})
	e.logger.Debug("hydrated comments", "comments", len(cached), "pending", len(e.pending))
}

// Start hydrates the engine and, when a backend is configured, starts the
// background loop: one visible sync, then a silent sync every PollInterval.
// Backend writes issued after Start use ctx.
func (e *Engine) Start(ctx context.Context) {
	e.Hydrate()

	e.mu.Lock()
	if e.cancelLoop != nil || e.localOnly {
		e.mu.Unlock()
		return
	}
	e.writeCtx = ctx
	loopCtx, cancel := context.WithCancel(ctx)
	e.cancelLoop = cancel
	e.mu.Unlock()

	e.loop.Add(1)
	go e.pollLoop(loopCtx)
}

// Close stops the poll loop, waits for in-flight backend writes and flushes
// any debounced cache write.
func (e *Engine) Close() {
	e.mu.Lock()
	cancel := e.cancelLoop
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.loop.Wait()

	if err := e.Wait(context.Background()); err != nil {
		e.logger.Warn("waiting for comment writes", "error", err)
	}
	e.flushPersist()
}

// Wait blocks until every backend write issued so far has completed.
func (e *Engine) Wait(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.inflight == 0 {
			e.mu.Unlock()
			return nil
		}
		idle := e.idle
		e.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Comments returns a copy of the current collection.
func (e *Engine) Comments() []comment.Comment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.comments.Peek())
}

// Status returns the current sync status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status.Peek()
}

// Counts returns the number of unresolved roots and of all roots.
func (e *Engine) Counts() (unresolved, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unresolved.Peek(), e.roots.Peek()
}

// LocalOnly reports whether the engine has stopped talking to the backend.
// Once true it stays true.
func (e *Engine) LocalOnly() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.localOnly
}

// Pending returns a copy of the pending changes.
func (e *Engine) Pending() map[string]PendingChange {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]PendingChange, len(e.pending))
	for id, p := range e.pending {
		out[id] = p
	}
	return out
}

// Failures returns the number of consecutive failed syncs.
func (e *Engine) Failures() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures
}

func (e *Engine) setStatus(s Status) {
	e.status.Set(s)
}

func (e *Engine) unavailableStatus() Status {
	if e.cfg.RequireBackend {
		return StatusOffline
	}
	return StatusLocal
}

func (e *Engine) canSync() bool {
	return e.remote != nil && !e.localOnly
}

// schedulePersist runs inside the persist effect, under e.mu.
func (e *Engine) schedulePersist(comments []comment.Comment) {
	if e.cfg.PersistDebounce <= 0 {
		e.cache.PutAll(comments)
		return
	}

	e.persistDue = comments
	e.persistQueue = true
	if e.persistTimer == nil {
		e.persistTimer = time.AfterFunc(e.cfg.PersistDebounce, e.flushPersist)
		return
	}
	e.persistTimer.Reset(e.cfg.PersistDebounce)
}

// flushPersist writes the latest queued collection, if any.
func (e *Engine) flushPersist() {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	if !e.persistQueue {
		e.mu.Unlock()
		return
	}
	due := e.persistDue
	e.persistDue = nil
	e.persistQueue = false
	if e.persistTimer != nil {
		e.persistTimer.Stop()
	}
	e.mu.Unlock()

	e.cache.PutAll(due)
}
