// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"sync"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// SegregatedStorage is a lock-free free list over caller-supplied blocks
// of identical-size chunks.
//
// A chunk is either owned by the free list or by a caller, never both.
// Chunks are reused LIFO. The first word of a free chunk holds the link
// to the next free chunk, so chunks must be at least 8 bytes and 8-byte
// aligned; callers see the full chunk once it is allocated.
//
// Allocate and Deallocate are lock-free from any number of goroutines.
// Only the refill path takes a mutex, so a single goroutine at a time
// grows the list when it runs dry. Memory added through AddBlock is
// never returned to the OS; the owning pool frees it en masse at
// destruction.
//
// Entry format of head: [lo=version | hi=top chunk address]. The version
// increments on every successful swap, which makes the pop
// compare-and-swap immune to ABA recycling of the top chunk.
type SegregatedStorage struct {
	_    pad
	head atomix.Uint128 // lo=version, hi=packed top of the free list
	_    pad
	mu sync.Mutex // serializes refill only, never the hot path
}

// Allocate pops a chunk from the free list. When the list is empty it
// calls refill (under the refill mutex) to add more chunks via AddBlock
// and retries. Returns nil iff refill reports that no more memory is
// available.
func (s *SegregatedStorage) Allocate(refill func() bool) unsafe.Pointer {
	sw := spin.Wait{}
	for {
		ver, top := s.head.LoadAcquire()
		if top == 0 {
			if !s.refillLocked(refill) {
				return nil
			}
			continue
		}
		// Reading the link of a chunk we do not own yet is safe: chunks
		// live in pool memory that is never unmapped while the pool
		// exists, and a stale read is rejected by the version check.
		next := *(*uint64)(unsafe.Pointer(uintptr(top)))
		if s.head.CompareAndSwapAcqRel(ver, top, ver+1, next) {
			return unsafe.Pointer(uintptr(top))
		}
		sw.Once()
	}
}

// Deallocate pushes p back onto the free list.
func (s *SegregatedStorage) Deallocate(p unsafe.Pointer) {
	sw := spin.Wait{}
	for {
		ver, top := s.head.LoadRelaxed()
		*(*uint64)(p) = top
		if s.head.CompareAndSwapAcqRel(ver, top, ver+1, uint64(uintptr(p))) {
			return
		}
		sw.Once()
	}
}

// AddBlock partitions block into blockSize/chunkSize chunks, links them
// into a chain, and splices the chain onto the free list. blockSize must
// be a multiple of chunkSize yielding at least two chunks; chunkSize
// must be at least 8 bytes. The storage does not take ownership of the
// block's memory; the caller frees it after the storage is abandoned.
func (s *SegregatedStorage) AddBlock(block unsafe.Pointer, blockSize, chunkSize uintptr) {
	if chunkSize < 8 || chunkSize%8 != 0 {
		panic("lfkit: chunk size must be a positive multiple of 8")
	}
	n := blockSize / chunkSize
	if n < 2 || blockSize%chunkSize != 0 {
		panic("lfkit: block must hold at least two whole chunks")
	}

	first := uintptr(block)
	last := first + (n-1)*chunkSize
	for c := first; c < last; c += chunkSize {
		*(*uint64)(unsafe.Pointer(c)) = uint64(c + chunkSize)
	}

	sw := spin.Wait{}
	for {
		ver, top := s.head.LoadRelaxed()
		*(*uint64)(unsafe.Pointer(last)) = top
		if s.head.CompareAndSwapAcqRel(ver, top, ver+1, uint64(first)) {
			return
		}
		sw.Once()
	}
}

// refillLocked runs refill under the refill mutex. A concurrent refill
// may have repopulated the list while we waited for the lock; in that
// case the refill callback is skipped.
func (s *SegregatedStorage) refillLocked(refill func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, top := s.head.LoadAcquire(); top != 0 {
		return true
	}
	if refill == nil {
		return false
	}
	return refill()
}
