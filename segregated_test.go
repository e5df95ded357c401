// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit_test

import (
	"sync"
	"testing"
	"unsafe"

	"code.hybscloud.com/lfkit"
)

// slab returns an 8-byte-aligned block of n bytes backed by a uint64
// slice, kept alive by the returned slice.
func slab(n uintptr) (unsafe.Pointer, []uint64) {
	buf := make([]uint64, (n+7)/8)
	return unsafe.Pointer(&buf[0]), buf
}

// TestSegregatedStorageBasic tests carving a block and LIFO reuse.
func TestSegregatedStorageBasic(t *testing.T) {
	var s lfkit.SegregatedStorage
	block, keep := slab(64)
	defer func() { _ = keep }()

	s.AddBlock(block, 64, 16)

	// 64/16 = 4 chunks; exhaustion with a nil refill returns nil.
	got := make([]unsafe.Pointer, 0, 4)
	for range 4 {
		p := s.Allocate(nil)
		if p == nil {
			t.Fatal("Allocate: got nil, want chunk")
		}
		got = append(got, p)
	}
	if p := s.Allocate(nil); p != nil {
		t.Fatalf("Allocate on exhausted: got %p, want nil", p)
	}

	// Every chunk lies inside the block at a chunk boundary.
	base := uintptr(block)
	seen := map[uintptr]bool{}
	for _, p := range got {
		off := uintptr(p) - base
		if off >= 64 || off%16 != 0 {
			t.Fatalf("chunk offset: got %d, want multiple of 16 below 64", off)
		}
		if seen[off] {
			t.Fatalf("chunk offset %d allocated twice", off)
		}
		seen[off] = true
	}

	// LIFO: the last freed chunk comes back first.
	s.Deallocate(got[0])
	s.Deallocate(got[1])
	if p := s.Allocate(nil); p != got[1] {
		t.Fatalf("Allocate after free: got %p, want %p", p, got[1])
	}
	if p := s.Allocate(nil); p != got[0] {
		t.Fatalf("Allocate after free: got %p, want %p", p, got[0])
	}
}

// TestSegregatedStorageRefill tests the refill callback path.
func TestSegregatedStorageRefill(t *testing.T) {
	var s lfkit.SegregatedStorage
	var keep [][]uint64
	refills := 0
	refill := func() bool {
		if refills == 2 {
			return false
		}
		refills++
		block, buf := slab(32)
		keep = append(keep, buf)
		s.AddBlock(block, 32, 16)
		return true
	}

	// Each refill adds 2 chunks; the third refill reports OOM.
	for i := range 4 {
		if p := s.Allocate(refill); p == nil {
			t.Fatalf("Allocate(%d): got nil, want chunk", i)
		}
	}
	if p := s.Allocate(refill); p != nil {
		t.Fatalf("Allocate after OOM: got %p, want nil", p)
	}
	if refills != 2 {
		t.Fatalf("refills: got %d, want 2", refills)
	}
}

// TestSegregatedStorageAddBlockPanics tests the AddBlock contract.
func TestSegregatedStorageAddBlockPanics(t *testing.T) {
	tests := []struct {
		name      string
		blockSize uintptr
		chunkSize uintptr
	}{
		{"tiny chunk", 64, 4},
		{"unaligned chunk", 64, 12},
		{"single chunk", 16, 16},
		{"ragged block", 40, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s lfkit.SegregatedStorage
			block, keep := slab(64)
			defer func() { _ = keep }()
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			s.AddBlock(block, tt.blockSize, tt.chunkSize)
		})
	}
}

// TestSegregatedStorageConcurrent tests allocate/deallocate churn from
// many goroutines over a fixed block.
func TestSegregatedStorageConcurrent(t *testing.T) {
	if lfkit.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses uintptr-packed atomics")
	}
	const (
		workers = 8
		rounds  = 10000
	)
	var s lfkit.SegregatedStorage
	block, keep := slab(uintptr(workers * 16))
	defer func() { _ = keep }()
	s.AddBlock(block, uintptr(workers*16), 16)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				p := s.Allocate(nil)
				if p == nil {
					continue
				}
				// Touch the chunk body past the link word.
				*(*uint64)(unsafe.Pointer(uintptr(p) + 8)) = uint64(uintptr(p))
				s.Deallocate(p)
			}
		}()
	}
	wg.Wait()

	// All chunks are back on the list.
	for i := range workers {
		if p := s.Allocate(nil); p == nil {
			t.Fatalf("Allocate(%d) after churn: got nil, want chunk", i)
		}
	}
	if p := s.Allocate(nil); p != nil {
		t.Fatalf("Allocate past capacity: got %p, want nil", p)
	}
}
