// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package lfkit

import (
	"os"
	"unsafe"
)

// allocChunk carves a page-aligned region out of an over-sized heap
// slab. The slab stays referenced by the owning pool's chunk registry,
// which keeps it alive for the pool's whole lifetime; that makes the
// raw-pointer arithmetic on it as safe as the mmap path.
func allocChunk(size int) (memChunk, bool) {
	pageSize := os.Getpagesize()
	raw := make([]byte, size+pageSize)
	base := uintptr(unsafe.Pointer(&raw[0]))
	off := 0
	if rem := int(base & uintptr(pageSize-1)); rem != 0 {
		off = pageSize - rem
	}
	return memChunk{raw: raw, base: unsafe.Pointer(&raw[off]), size: size}, true
}

// freeChunk drops the slab reference; the garbage collector reclaims it.
func freeChunk(c *memChunk) {
	c.raw = nil
	c.base = nil
}
