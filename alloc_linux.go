// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package lfkit

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// allocChunk obtains size bytes of page-aligned memory from the OS via
// an anonymous private mapping. Mapped memory is off the Go heap, so
// packing its addresses into integer atomics is safe by construction.
func allocChunk(size int) (memChunk, bool) {
	raw, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
	if err != nil {
		return memChunk{}, false
	}
	return memChunk{raw: raw, base: unsafe.Pointer(&raw[0]), size: size}, true
}

// freeChunk unmaps a chunk obtained from allocChunk.
func freeChunk(c *memChunk) {
	_ = unix.Munmap(c.raw)
	c.raw = nil
	c.base = nil
}
