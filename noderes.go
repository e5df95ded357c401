// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// NodeResource serves fixed-size nodes carved from PagePool blocks.
//
// The node size is latched by the first Allocate call; every later
// request must fit in it. Nodes have stable addresses for the lifetime
// of the pool and are reused LIFO, which makes the resource the backbone
// for intrusive containers. Nodes never return to the pool before the
// pool is released.
//
// Use one NodeResource per distinct element size; resources sharing a
// PagePool are independent apart from drawing blocks from it.
type NodeResource struct {
	pool     *PagePool
	nodeSize atomix.Uint64 // latched by the first Allocate, 0 until then
	storage  SegregatedStorage
}

// NewNodeResource creates a resource drawing blocks from pool.
func NewNodeResource(pool *PagePool) *NodeResource {
	if pool == nil {
		panic("lfkit: node resource needs a page pool")
	}
	return &NodeResource{pool: pool}
}

// Allocate returns a node of at least size bytes, or nil on OOM.
// The first call latches the node size (rounded up to 8 bytes); later
// calls panic if size exceeds it.
func (r *NodeResource) Allocate(size uintptr) unsafe.Pointer {
	r.latch(size)
	return r.storage.Allocate(r.refill)
}

// Deallocate returns a node to the resource.
func (r *NodeResource) Deallocate(p unsafe.Pointer) {
	r.storage.Deallocate(p)
}

// NodeSize returns the latched node size in bytes, 0 before the first
// Allocate.
func (r *NodeResource) NodeSize() uintptr {
	return uintptr(r.nodeSize.LoadAcquire())
}

// latch records the node size on first use. Concurrent first calls race
// through the CAS; the winner's size sticks and the losers must fit.
func (r *NodeResource) latch(size uintptr) {
	want := (size + 7) &^ 7
	if want < 8 {
		want = 8
	}
	for {
		cur := uintptr(r.nodeSize.LoadAcquire())
		if cur != 0 {
			if size > cur {
				panic("lfkit: allocation exceeds latched node size")
			}
			return
		}
		if uintptr(r.pool.blockSize)/want < 2 {
			panic("lfkit: node size too large for pool block")
		}
		if r.nodeSize.CompareAndSwapAcqRel(0, uint64(want)) {
			return
		}
	}
}

// setNodeSize pre-latches the node size without an allocation.
// Used by DequeIndexResource to size its buckets at Init.
func (r *NodeResource) setNodeSize(size uintptr) {
	size = (size + 7) &^ 7
	if uintptr(r.pool.blockSize)/size < 2 {
		panic("lfkit: node size too large for pool block")
	}
	r.nodeSize.StoreRelaxed(uint64(size))
}

// refill feeds one pool block into the free list, carved into
// blockSize/nodeSize nodes. Runs under the storage refill mutex.
func (r *NodeResource) refill() bool {
	block := r.pool.Allocate()
	if block == nil {
		return false
	}
	r.storage.AddBlock(block, uintptr(r.pool.blockSize), uintptr(r.nodeSize.LoadRelaxed()))
	return true
}
