// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// MPSCNode is the intrusive link embedded in values carried by an
// MPSCQueue. The embedding value owns the node's storage; the queue
// never allocates.
//
// A node may sit in at most one queue at a time and must not be reused
// until Pop has returned it.
type MPSCNode struct {
	next atomix.Uint64 // packed *MPSCNode
}

// MPSCQueue is an intrusive lock-free multi-producer single-consumer
// queue.
//
// Pushes are wait-free: producers swap the head pointer and then link
// the previous head to the new node. The consumer walks the list from
// tail. An embedded stub node keeps the list non-empty at all times; the
// consumer re-pushes the stub when it would otherwise drain the list
// while a producer is mid-push.
//
// Node addresses are packed into 64-bit atomics, so queued nodes are
// invisible to the garbage collector. Callers keep nodes reachable while
// they are queued; nodes carved from a NodeResource satisfy this by
// construction, and heap nodes need a live reference elsewhere (same
// ownership contract as handing a pointer through a uintptr handle).
type MPSCQueue struct {
	_    pad
	head atomix.Uint64 // packed *MPSCNode, last pushed (producer side)
	_    pad
	tail *MPSCNode // next consumable node (consumer-owned)
	stub MPSCNode
	_    padShort
}

// NewMPSCQueue creates an empty queue containing only the stub.
func NewMPSCQueue() *MPSCQueue {
	q := &MPSCQueue{}
	q.head.StoreRelaxed(packNode(&q.stub))
	q.tail = &q.stub
	return q
}

// packNode packs a node address into a 64-bit word.
func packNode(n *MPSCNode) uint64 {
	return uint64(uintptr(unsafe.Pointer(n)))
}

// unpackNode recovers a node from a packed word.
func unpackNode(v uint64) *MPSCNode {
	if v == 0 {
		return nil
	}
	return (*MPSCNode)(*(*unsafe.Pointer)(unsafe.Pointer(&v)))
}

// Push appends n to the queue (multiple producers safe). Never fails.
//
// The head swap defines the global push order; the release store to the
// previous head's next link publishes the node and everything written
// into the embedding value before the call.
func (q *MPSCQueue) Push(n *MPSCNode) {
	n.next.StoreRelaxed(0)
	prev := unpackNode(q.head.SwapAcqRel(packNode(n)))
	prev.next.StoreRelease(packNode(n))
}

// Pop removes and returns the oldest node (single consumer only).
// Returns nil when the queue is empty, and may also return nil
// transiently while a producer has swapped the head but not yet linked
// its node; the caller retries later.
func (q *MPSCQueue) Pop() *MPSCNode {
	tail := q.tail
	next := unpackNode(tail.next.LoadAcquire())

	if tail == &q.stub {
		if next == nil {
			return nil // empty
		}
		// Skip the stub; it re-enters the list only via Push below.
		q.tail = next
		tail = next
		next = unpackNode(tail.next.LoadAcquire())
	}

	if next != nil {
		q.tail = next
		return tail
	}

	// tail is the last linked node. If head moved past it, a push is in
	// flight but its link store has not landed yet.
	head := unpackNode(q.head.LoadRelaxed())
	if tail != head {
		return nil
	}

	// Queue holds exactly one node; re-push the stub so the list stays
	// non-empty after we take it.
	q.Push(&q.stub)

	next = unpackNode(tail.next.LoadAcquire())
	if next != nil {
		q.tail = next
		return tail
	}
	// A producer slipped in between the head check and the stub push;
	// its link is still in flight.
	return nil
}
