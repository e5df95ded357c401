// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfkit provides lock-free concurrency and memory primitives.
//
// The package is a kit of cooperating building blocks for low-latency
// pipelines:
//
//   - Ring: single-producer single-consumer chunked ring buffer with a
//     non-destructive read cursor
//   - MPSCQueue: intrusive multi-producer single-consumer queue over
//     caller-owned nodes
//   - SegregatedStorage: lock-free free list over caller-supplied blocks
//   - PagePool: page-aligned fixed-size block pool that grows by bounded
//     doubling and never frees during its lifetime
//   - NodeResource: fixed-size node allocator layered on a PagePool
//   - DequeIndexResource: bucketed NodeResources for the common deque
//     index-array sizes
//   - Semaphore / SpinSemaphore: futex-backed counting semaphores, the
//     spinning variant running a calibrated user-space delay before
//     sleeping
//   - Tracked / TrackedShared: heap trackers that let external observers
//     follow an object across explicit moves
//
// # Quick Start
//
// Hand chunks of samples from a producer to a consumer:
//
//	r := lfkit.NewRing[int16](256, 8) // 8 chunks of 256 samples
//
//	// Producer
//	if err := r.Push(samples); lfkit.IsWouldBlock(err) {
//	    // ring full - drop or back off
//	}
//
//	// Consumer
//	if chunk := r.Pop(); chunk != nil {
//	    process(chunk)
//	}
//
// Wake consumers only when work arrives:
//
//	sem := lfkit.NewSpinSemaphore()
//	q := lfkit.NewMPSCQueue()
//
//	// Producers
//	q.Push(&job.Node)
//	sem.Post(1)
//
//	// Consumer
//	sem.Wait()
//	n := q.Pop()
//
// # Allocation Layers
//
// The memory side of the kit is layered: PagePool carves page-aligned
// blocks out of OS chunks, NodeResource carves fixed-size nodes out of
// pool blocks, and DequeIndexResource fronts twelve NodeResources with a
// size-to-bucket map. All layers share the same lock-free
// SegregatedStorage fast path; only the refill path takes a mutex, so at
// most one goroutine at a time asks the OS for more memory. Memory is
// never returned to the OS before the owning pool's Release.
//
// Pool-served memory is raw: it is invisible to the garbage collector,
// so values placed in it must not hold the only reference to a Go heap
// object. Handles, indices, and plain data are safe; see TypedResource
// for the typed contract.
//
// # Non-Blocking Contract
//
// Hot-path operations never block and never allocate. Full and empty
// conditions are reported as [ErrWouldBlock] or nil results; the only
// suspension point in the package is Semaphore.Wait. Contract violations
// (wrong node size, token overflow, misuse of single-producer APIs) are
// programming errors and panic rather than surfacing as runtime errors.
//
// # Memory Ordering
//
// All cross-goroutine visibility is established by explicit
// release/acquire edges: producers release-store their publication word,
// consumers acquire-load it, and same-side cursors use relaxed accesses.
// No operation in the package requires sequential consistency.
package lfkit
