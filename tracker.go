// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"sync"
	"sync/atomic"
	"unsafe"
	"weak"
)

// Tracker is a non-moving heap anchor for a movable Tracked value. The
// tracked holder owns the sole strong reference; observers hold weak
// references and follow the back-pointer to wherever the value
// currently lives.
//
// The back-pointer is non-nil exactly while the tracked holder is alive
// and unmoved-from.
type Tracker[T any] struct {
	obj *Tracked[T]
}

// Object returns the holder currently owning this tracker, or nil once
// the holder was released or moved from.
func (t *Tracker[T]) Object() *Tracked[T] {
	return t.obj
}

// Tracked owns a value together with a heap tracker, so that external
// observers can follow the value across explicit moves. Go has no move
// constructors; MoveFrom is the explicit equivalent, and Release is the
// explicit end of life.
//
// Tracked is not synchronized: moves, releases, and observer reads need
// external serialization. Use TrackedShared when observers and movers
// run concurrently.
type Tracked[T any] struct {
	Value   T
	tracker *Tracker[T]
}

// NewTracked allocates a holder for v and its tracker.
func NewTracked[T any](v T) *Tracked[T] {
	t := &Tracked[T]{Value: v}
	t.tracker = &Tracker[T]{obj: t}
	return t
}

// MoveFrom transfers src's value and tracker into t and rewrites the
// tracker's back-pointer, so observers now resolve to t. src is left
// empty and released.
func (t *Tracked[T]) MoveFrom(src *Tracked[T]) {
	if src.tracker == nil {
		panic("lfkit: move from a released tracked value")
	}
	t.Value = src.Value
	t.tracker = src.tracker
	var zero T
	src.Value = zero
	src.tracker = nil
	t.tracker.obj = t
}

// Release writes nil into the tracker's back-pointer and drops the
// strong reference. Observers still holding the tracker read nil;
// once they let go, the tracker is collected.
func (t *Tracked[T]) Release() {
	if t.tracker == nil {
		return
	}
	t.tracker.obj = nil
	t.tracker = nil
}

// Tracker returns the strong tracker reference, nil after Release or a
// move-from.
func (t *Tracked[T]) Tracker() *Tracker[T] {
	return t.tracker
}

// Weak returns a weak reference to the tracker for observers. The
// reference stops resolving once the holder releases the tracker and no
// strong references remain.
func (t *Tracked[T]) Weak() weak.Pointer[Tracker[T]] {
	return weak.Make(t.tracker)
}

// SharedTracker is the tracker of a TrackedShared holder. The
// back-pointer is atomic: it is written inside the holder's write-lock
// critical section and may be read by observers that hold the read
// lock.
type SharedTracker[T any] struct {
	obj atomic.Pointer[TrackedShared[T]]
}

// Object returns the holder currently owning this tracker, or nil once
// the holder was released or moved from.
func (t *SharedTracker[T]) Object() *TrackedShared[T] {
	return t.obj.Load()
}

// Load returns the tracked value, retrying across concurrent moves: the
// holder is validated against the back-pointer under its read lock, so
// a value from a moved-from holder is never returned. Reports false
// once the holder was released.
func (t *SharedTracker[T]) Load() (T, bool) {
	for {
		obj := t.obj.Load()
		if obj == nil {
			var zero T
			return zero, false
		}
		obj.mu.RLock()
		if t.obj.Load() == obj {
			v := obj.value
			obj.mu.RUnlock()
			return v, true
		}
		// Moved away between the back-pointer read and the lock.
		obj.mu.RUnlock()
	}
}

// TrackedShared is the thread-safe tracked holder: the value and its
// tracker sit behind an embedded read/write lock. Moves take the write
// locks of both holders; observers resolve a weak tracker reference and
// read through SharedTracker.Load, which validates the holder against
// the back-pointer under the read lock.
type TrackedShared[T any] struct {
	mu      sync.RWMutex
	value   T
	tracker *SharedTracker[T]
}

// NewTrackedShared allocates a holder for v and its tracker.
func NewTrackedShared[T any](v T) *TrackedShared[T] {
	t := &TrackedShared[T]{value: v}
	t.tracker = &SharedTracker[T]{}
	t.tracker.obj.Store(t)
	return t
}

// MoveFrom transfers src's value and tracker into t under both write
// locks, taken in address order so concurrent moves cannot deadlock.
func (t *TrackedShared[T]) MoveFrom(src *TrackedShared[T]) {
	first, second := t, src
	if uintptr(unsafe.Pointer(src)) < uintptr(unsafe.Pointer(t)) {
		first, second = src, t
	}
	first.mu.Lock()
	second.mu.Lock()
	defer second.mu.Unlock()
	defer first.mu.Unlock()

	if src.tracker == nil {
		panic("lfkit: move from a released tracked value")
	}
	t.value = src.value
	t.tracker = src.tracker
	var zero T
	src.value = zero
	src.tracker = nil
	t.tracker.obj.Store(t)
}

// Release writes nil into the tracker's back-pointer under the write
// lock and drops the strong reference.
func (t *TrackedShared[T]) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tracker == nil {
		return
	}
	t.tracker.obj.Store(nil)
	t.tracker = nil
}

// Load returns the value under the read lock.
func (t *TrackedShared[T]) Load() T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

// Store replaces the value under the write lock.
func (t *TrackedShared[T]) Store(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.value = v
}

// Weak returns a weak reference to the tracker for observers.
func (t *TrackedShared[T]) Weak() weak.Pointer[SharedTracker[T]] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return weak.Make(t.tracker)
}
