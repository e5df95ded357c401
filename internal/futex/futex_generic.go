// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package futex

import (
	"sync"
	"unsafe"
)

// Emulated futex for platforms without the syscall: sleepers park on a
// per-bucket list of condition variables, hashed by word address. The
// bucket lock closes the race between the value check and parking, the
// same way the kernel serializes FUTEX_WAIT against FUTEX_WAKE.

const numBuckets = 512

type sleeper struct {
	prev, next *sleeper
	addr       uintptr
	signaled   bool
	mu         sync.Mutex
	cond       *sync.Cond
}

type bucket struct {
	mu   sync.Mutex
	root sleeper // sentinel of a circular list
}

var buckets [numBuckets]bucket

func init() {
	for i := range buckets {
		s := &buckets[i].root
		s.prev = s
		s.next = s
	}
}

func bucketOf(addr uintptr) *bucket {
	// Fibonacci scramble of the address bits.
	h := uint64(addr>>4) * 0x9e3779b97f4a7c15
	return &buckets[h>>52&(numBuckets-1)]
}

// Wait sleeps until the word no longer holds expected or a wake
// arrives. Returns immediately if the value already differs.
func (w *Word) Wait(expected uint32) {
	addr := uintptr(unsafe.Pointer(w))
	b := bucketOf(addr)

	b.mu.Lock()
	if w.Load() != expected {
		b.mu.Unlock()
		return
	}
	s := sleeper{addr: addr}
	s.cond = sync.NewCond(&s.mu)
	s.prev = b.root.prev
	s.next = &b.root
	b.root.prev.next = &s
	b.root.prev = &s
	b.mu.Unlock()

	s.mu.Lock()
	for !s.signaled {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// Wake releases up to n sleepers parked on this word and returns the
// number released.
func (w *Word) Wake(n uint32) int {
	wakeCalls.Add(1)
	addr := uintptr(unsafe.Pointer(w))
	b := bucketOf(addr)

	woken := 0
	b.mu.Lock()
	for it := b.root.next; uint32(woken) < n && it != &b.root; {
		next := it.next
		if it.addr == addr {
			woken++
			it.prev.next = it.next
			it.next.prev = it.prev
			it.mu.Lock()
			it.signaled = true
			it.cond.Signal()
			it.mu.Unlock()
		}
		it = next
	}
	b.mu.Unlock()
	return woken
}
