// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import "unsafe"

// Resource is the allocate/deallocate contract shared by the fixed-size
// memory resources in this package.
//
// Allocate returns nil when the backing pool cannot be refilled (out of
// memory); it never blocks beyond the brief refill mutex. Deallocate
// returns a previously allocated node to the resource; the node becomes
// immediately reusable and must not be touched afterwards.
//
// Memory served by a Resource is raw and invisible to the garbage
// collector. Store plain data, indices, or handles; do not store the
// only reference to a Go heap object.
type Resource interface {
	// Allocate returns a node of at least size bytes, or nil on OOM.
	Allocate(size uintptr) unsafe.Pointer
	// Deallocate returns a node obtained from Allocate.
	Deallocate(p unsafe.Pointer)
}

// SizedResource is a Resource variant whose deallocation needs the
// original request size to locate the owning bucket. The bucket is a
// pure function of the size; the caller always supplies it.
type SizedResource interface {
	// Allocate returns a node of at least size bytes, or nil on OOM.
	Allocate(size uintptr) unsafe.Pointer
	// DeallocateSized returns a node along with the size it was
	// requested with.
	DeallocateSized(p unsafe.Pointer, size uintptr)
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
