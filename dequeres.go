// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"sync"
	"unsafe"
)

// dequeBucketSlots lists the pointer-sized capacities of the twelve
// buckets: 10*2^(i/2) - 2 with half-power rounding. These are the index
// array sizes a deque grows through (8, 12, 18, 26, ...), so nearly
// every index allocation lands on an exact bucket; in-between sizes
// round up to the next one.
var dequeBucketSlots = [12]uintptr{8, 12, 18, 26, 38, 54, 78, 111, 158, 224, 318, 451}

// DequeIndexResource serves the exponentially growing index arrays of a
// deque from a bucket array of NodeResources, one per common size.
// Requests beyond the top bucket fall through to the regular allocator.
//
// The resource is a process-wide singleton obtained with DequeIndex;
// Init must run from the program's bootstrap before the first
// allocation. The bucket for a request is a pure function of its size,
// so DeallocateSized needs the original request size.
type DequeIndexResource struct {
	buckets [12]NodeResource

	initMu sync.Mutex
	pool   *PagePool // nil until Init

	fallbackMu sync.Mutex
	fallback   map[uintptr][]byte
}

var dequeIndex DequeIndexResource

// DequeIndex returns the process-wide resource.
func DequeIndex() *DequeIndexResource {
	return &dequeIndex
}

// Init binds every bucket to pool and pre-latches the bucket node
// sizes. Must be called before the first allocation; calling it again
// with the same pool is a no-op, with a different pool a panic. The
// pool's block size must hold at least two top-bucket arrays.
func (d *DequeIndexResource) Init(pool *PagePool) {
	if pool == nil {
		panic("lfkit: deque index resource needs a page pool")
	}
	d.initMu.Lock()
	defer d.initMu.Unlock()
	if d.pool != nil {
		if d.pool != pool {
			panic("lfkit: deque index resource already bound to another pool")
		}
		return
	}
	for i := range d.buckets {
		d.buckets[i].pool = pool
		d.buckets[i].setNodeSize(dequeBucketSlots[i] * uintptr(ptrSize))
	}
	d.fallback = make(map[uintptr][]byte)
	d.pool = pool
}

// bucketFor maps a request size to its bucket, or -1 for the fallback.
func bucketFor(size uintptr) int {
	slots := (size + uintptr(ptrSize) - 1) / uintptr(ptrSize)
	for i, capacity := range dequeBucketSlots {
		if slots <= capacity {
			return i
		}
	}
	return -1
}

// Allocate returns size bytes from the matching bucket, or from the
// regular allocator when size exceeds the top bucket. Returns nil on
// OOM.
func (d *DequeIndexResource) Allocate(size uintptr) unsafe.Pointer {
	if d.pool == nil {
		panic("lfkit: deque index resource used before Init")
	}
	if b := bucketFor(size); b >= 0 {
		return d.buckets[b].Allocate(size)
	}
	return d.allocateFallback(size)
}

// DeallocateSized returns memory obtained from Allocate together with
// the size it was requested with.
func (d *DequeIndexResource) DeallocateSized(p unsafe.Pointer, size uintptr) {
	if b := bucketFor(size); b >= 0 {
		d.buckets[b].Deallocate(p)
		return
	}
	d.deallocateFallback(p)
}

// allocateFallback serves over-sized requests from the regular
// allocator, keeping the slab alive in a registry until deallocation.
func (d *DequeIndexResource) allocateFallback(size uintptr) unsafe.Pointer {
	buf := make([]byte, size)
	p := unsafe.Pointer(&buf[0])
	d.fallbackMu.Lock()
	d.fallback[uintptr(p)] = buf
	d.fallbackMu.Unlock()
	return p
}

func (d *DequeIndexResource) deallocateFallback(p unsafe.Pointer) {
	d.fallbackMu.Lock()
	_, ok := d.fallback[uintptr(p)]
	delete(d.fallback, uintptr(p))
	d.fallbackMu.Unlock()
	if !ok {
		panic("lfkit: fallback deallocation of unknown pointer")
	}
}
