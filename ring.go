// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import "code.hybscloud.com/atomix"

// Ring is a single-producer single-consumer chunked ring buffer.
//
// Objects move through the ring in fixed-size chunks of chunkLen
// elements; a chunk is the unit of transfer between producer and
// consumer. One chunk is always kept empty to disambiguate full from
// empty, so a ring built with n chunks holds at most n-1 of them.
//
// Beside the usual head (producer) and tail (consumer) cursors the
// consumer owns a third, non-destructive read cursor: Read walks chunks
// without reclaiming them, ResetRead rewinds it to the oldest
// unreclaimed chunk, and Pop reclaims one chunk while keeping the read
// cursor from falling behind.
//
// Exactly one goroutine may push and exactly one may pop/read. The
// lifecycle edges (Clear, Reallocate) require that neither side is
// running.
type Ring[T any] struct {
	_    pad
	head atomix.Uint64 // Producer write cursor (chunk index)
	_    pad
	tail atomix.Uint64 // Consumer reclaim cursor (chunk index)
	_    pad
	read uint64 // Consumer peek cursor; consumer-private, never behind tail
	_    pad
	buf      []T
	chunkLen int
	chunks   uint64
}

// NewRing creates a ring of chunks chunks holding chunkLen objects each.
// Usable capacity is (chunks-1)*chunkLen objects.
// Panics if chunkLen < 1 or chunks < 2.
func NewRing[T any](chunkLen, chunks int) *Ring[T] {
	if chunkLen < 1 {
		panic("lfkit: ring chunk length must be >= 1")
	}
	if chunks < 2 {
		panic("lfkit: ring must have >= 2 chunks")
	}
	return &Ring[T]{
		buf:      make([]T, chunkLen*chunks),
		chunkLen: chunkLen,
		chunks:   uint64(chunks),
	}
}

// inc advances a chunk cursor by one with wraparound.
func (r *Ring[T]) inc(i uint64) uint64 {
	i++
	if i == r.chunks {
		return 0
	}
	return i
}

// chunk returns the backing slice of chunk i.
func (r *Ring[T]) chunk(i uint64) []T {
	off := int(i) * r.chunkLen
	return r.buf[off : off+r.chunkLen : off+r.chunkLen]
}

// Push copies one chunk from src into the ring (producer only).
// src must hold at least chunkLen objects (panic otherwise); extra
// elements are ignored. Returns ErrWouldBlock if the ring is full.
func (r *Ring[T]) Push(src []T) error {
	if len(src) < r.chunkLen {
		panic("lfkit: push source shorter than one chunk")
	}
	head := r.head.LoadRelaxed()
	next := r.inc(head)
	if next == r.tail.LoadAcquire() {
		return ErrWouldBlock
	}
	copy(r.chunk(head), src)
	r.head.StoreRelease(next)
	return nil
}

// PushZero appends one zero-filled chunk (producer only).
// Returns ErrWouldBlock if the ring is full.
func (r *Ring[T]) PushZero() error {
	head := r.head.LoadRelaxed()
	next := r.inc(head)
	if next == r.tail.LoadAcquire() {
		return ErrWouldBlock
	}
	c := r.chunk(head)
	var zero T
	for i := range c {
		c[i] = zero
	}
	r.head.StoreRelease(next)
	return nil
}

// Pop reclaims the oldest chunk (consumer only).
// Returns nil if the ring is empty. The returned chunk stays valid until
// the next Pop, giving the consumer one chunk of lookback before the
// producer may overwrite it.
func (r *Ring[T]) Pop() []T {
	tail := r.tail.LoadRelaxed()
	if tail == r.head.LoadAcquire() {
		return nil
	}
	if r.read == tail {
		// Keep the read cursor from falling behind the reclaimed chunk.
		r.read = r.inc(tail)
	}
	r.tail.StoreRelease(r.inc(tail))
	return r.chunk(tail)
}

// Read returns the chunk under the read cursor and advances it
// (consumer only). Returns nil when the cursor has caught up with the
// producer. Read does not reclaim chunks; use Pop for that.
func (r *Ring[T]) Read() []T {
	if r.read == r.head.LoadAcquire() {
		return nil
	}
	c := r.chunk(r.read)
	r.read = r.inc(r.read)
	return c
}

// ResetRead rewinds the read cursor to the oldest unreclaimed chunk
// (consumer only).
func (r *Ring[T]) ResetRead() {
	r.read = r.tail.LoadRelaxed()
}

// Clear empties the ring by advancing tail and read to head.
// Both sides must be quiescent.
func (r *Ring[T]) Clear() {
	head := r.head.LoadRelaxed()
	r.tail.StoreRelaxed(head)
	r.read = head
}

// Empty reports whether no chunk is waiting to be reclaimed.
func (r *Ring[T]) Empty() bool {
	return r.tail.LoadAcquire() == r.head.LoadAcquire()
}

// Full reports whether a Push would fail.
func (r *Ring[T]) Full() bool {
	return r.inc(r.head.LoadAcquire()) == r.tail.LoadAcquire()
}

// AtEnd reports whether the read cursor has caught up with the producer
// (consumer only).
func (r *Ring[T]) AtEnd() bool {
	return r.read == r.head.LoadAcquire()
}

// ChunkLen returns the number of objects per chunk.
func (r *Ring[T]) ChunkLen() int {
	return r.chunkLen
}

// Cap returns the usable capacity in objects: (chunks-1)*chunkLen.
func (r *Ring[T]) Cap() int {
	return int(r.chunks-1) * r.chunkLen
}

// Reallocate resizes the ring to chunks chunks and empties it.
// Both sides must be quiescent. Panics if chunks < 2.
func (r *Ring[T]) Reallocate(chunks int) {
	if chunks < 2 {
		panic("lfkit: ring must have >= 2 chunks")
	}
	r.buf = make([]T, r.chunkLen*chunks)
	r.chunks = uint64(chunks)
	r.head.StoreRelaxed(0)
	r.tail.StoreRelaxed(0)
	r.read = 0
}
