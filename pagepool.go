// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"os"
	"sync"
	"unsafe"
)

// Defaults for the per-refill growth bounds, in blocks.
const (
	defaultMinChunkBlocks = 2
	defaultMaxChunkBlocks = 1024
)

// PagePool hands out page-aligned fixed-size blocks.
//
// Blocks come from OS chunks obtained with page-aligned anonymous
// mappings (a heap slab on platforms without mmap). Each refill requests
// clamp(totalBlocks, minChunk, maxChunk) blocks, so the pool roughly
// doubles until the cap is reached. Freed blocks go back to an internal
// free list; memory returns to the OS only in Release.
//
// Allocate and Deallocate are safe from any number of goroutines; the
// refill path is serialized internally. Release must be externally
// sequenced after all users quiesce.
type PagePool struct {
	blockSize int
	minChunk  int
	maxChunk  int

	storage SegregatedStorage

	mu          sync.Mutex // guards chunks and totalBlocks
	chunks      []memChunk
	totalBlocks int
}

// memChunk records one OS-level allocation.
type memChunk struct {
	raw  []byte         // mapping or backing heap slab
	base unsafe.Pointer // page-aligned base
	size int            // usable bytes
}

// NewPagePool creates a pool of blockBytes-sized blocks with default
// growth bounds. blockBytes must be a positive multiple of the OS page
// size.
func NewPagePool(blockBytes int) *PagePool {
	return NewPagePoolBounds(blockBytes, defaultMinChunkBlocks, defaultMaxChunkBlocks)
}

// NewPagePoolBounds creates a pool with explicit per-refill growth
// bounds in blocks. minChunkBlocks must be at least 2 (a refill must
// carve at least two blocks) and at most maxChunkBlocks.
func NewPagePoolBounds(blockBytes, minChunkBlocks, maxChunkBlocks int) *PagePool {
	pageSize := os.Getpagesize()
	if blockBytes <= 0 || blockBytes%pageSize != 0 {
		panic("lfkit: block size must be a positive multiple of the page size")
	}
	if minChunkBlocks < 2 {
		panic("lfkit: min chunk must be >= 2 blocks")
	}
	if maxChunkBlocks < minChunkBlocks {
		panic("lfkit: max chunk must be >= min chunk")
	}
	return &PagePool{
		blockSize: blockBytes,
		minChunk:  minChunkBlocks,
		maxChunk:  maxChunkBlocks,
	}
}

// Allocate returns one page-aligned block of BlockSize bytes, or nil if
// the OS refuses more memory.
func (p *PagePool) Allocate() unsafe.Pointer {
	return p.storage.Allocate(p.refill)
}

// Deallocate returns a block to the pool's free list.
func (p *PagePool) Deallocate(b unsafe.Pointer) {
	p.storage.Deallocate(b)
}

// refill grows the pool by one OS chunk. Runs under the storage's
// refill mutex, so at most one goroutine at a time is here.
func (p *PagePool) refill() bool {
	p.mu.Lock()
	blocks := p.totalBlocks
	p.mu.Unlock()
	if blocks < p.minChunk {
		blocks = p.minChunk
	}
	if blocks > p.maxChunk {
		blocks = p.maxChunk
	}

	c, ok := allocChunk(blocks * p.blockSize)
	if !ok {
		return false
	}

	p.mu.Lock()
	p.chunks = append(p.chunks, c)
	p.totalBlocks += blocks
	p.mu.Unlock()

	p.storage.AddBlock(c.base, uintptr(c.size), uintptr(p.blockSize))
	return true
}

// Release frees every OS chunk the pool ever obtained. All blocks,
// allocated or free, become invalid. The pool must not be used again.
func (p *PagePool) Release() {
	p.mu.Lock()
	chunks := p.chunks
	p.chunks = nil
	p.totalBlocks = 0
	p.mu.Unlock()

	p.storage.head.StoreRelaxed(0, 0)
	for i := range chunks {
		freeChunk(&chunks[i])
	}
}

// BlockSize returns the size of one block in bytes.
func (p *PagePool) BlockSize() int {
	return p.blockSize
}

// ChunkCount returns the number of OS-level allocations made so far.
func (p *PagePool) ChunkCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.chunks)
}

// TotalBlocks returns the number of blocks obtained from the OS so far.
func (p *PagePool) TotalBlocks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalBlocks
}
