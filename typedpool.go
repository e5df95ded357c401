// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import "unsafe"

// TypedResource carves values of a single Go type out of an untyped
// Resource, typically a NodeResource over a PagePool.
//
// The memory is invisible to the garbage collector: T must not contain
// Go pointers, or the pointees may be collected or moved while the node
// still references them. Plain data, indices, and pool handles are fine;
// an MPSCNode embedded in T is fine because queue links point at pool
// memory, not the Go heap.
type TypedResource[T any] struct {
	res Resource
}

// NewTypedResource binds a typed facade to res. Panics on a nil
// resource.
func NewTypedResource[T any](res Resource) *TypedResource[T] {
	if res == nil {
		panic("lfkit: typed resource requires a backing resource")
	}
	return &TypedResource[T]{res: res}
}

// New allocates a zeroed T from the backing resource, or nil on OOM.
func (r *TypedResource[T]) New() *T {
	p := r.res.Allocate(unsafe.Sizeof(*new(T)))
	if p == nil {
		return nil
	}
	t := (*T)(p)
	var zero T
	*t = zero
	return t
}

// Free returns a value obtained from New. The memory becomes
// immediately reusable; the caller must not touch it afterwards.
func (r *TypedResource[T]) Free(t *T) {
	r.res.Deallocate(unsafe.Pointer(t))
}
