package syncengine

import (
	"github.com/evcraddock/slidenotes/internal/comment"
	"github.com/evcraddock/slidenotes/internal/reactive"
)

// View is the reactive surface handed to Watch callbacks. Every method is a
// tracked read: the callback runs again when a value it read changes.
//
// A View is only valid inside the callback that received it, and the
// callback must not call Engine methods, which would deadlock.
type View struct {
	e *Engine
}

// Comments returns the collection. Callers must not modify it.
func (v View) Comments() []comment.Comment { return v.e.comments.Get() }

// Hydrated reports whether the cache has been loaded.
func (v View) Hydrated() bool { return v.e.hydrated.Get() }

// Status returns the sync status.
func (v View) Status() Status { return v.e.status.Get() }

// RootCount returns the number of threads.
func (v View) RootCount() int { return v.e.roots.Get() }

// UnresolvedCount returns the number of open threads.
func (v View) UnresolvedCount() int { return v.e.unresolved.Get() }

// RootsForSurface returns the threads anchored to slideID.
func (v View) RootsForSurface(slideID string) []comment.Comment {
	return comment.RootsForSurface(v.Comments(), slideID)
}

// RepliesFor returns the replies to rootID.
func (v View) RepliesFor(rootID string) []comment.Comment {
	return comment.RepliesFor(v.Comments(), rootID)
}

// Watch runs fn now and again whenever a value it read through the View
// changes. Calls happen while the engine is locked, on whichever goroutine
// made the change. The returned function stops the watch.
func (e *Engine) Watch(fn func(View)) (stop func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	effect := reactive.NewEffect(e.rt, func() { fn(View{e: e}) })
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		effect.Dispose()
	}
}
