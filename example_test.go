// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// This file contains examples that move data through raw pool memory
// and uintptr-packed atomics. These trigger false positives with Go's
// race detector because the synchronization is invisible to it. The
// examples are correct; they're excluded from race testing.

package lfkit_test

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/lfkit"
)

// ExampleNewRing demonstrates chunked hand-off between pipeline stages.
func ExampleNewRing() {
	// Chunks of 4 samples; 3 chunks of ring space.
	r := lfkit.NewRing[int](4, 3)

	r.Push([]int{1, 2, 3, 4})
	r.Push([]int{5, 6, 7, 8})

	for c := r.Pop(); c != nil; c = r.Pop() {
		fmt.Println(c)
	}

	// Output:
	// [1 2 3 4]
	// [5 6 7 8]
}

// ExampleMPSCQueue demonstrates the full stack: messages carved from a
// page pool, queued through the intrusive MPSC queue, with a spinning
// semaphore signalling the consumer.
func ExampleMPSCQueue() {
	type message struct {
		link    lfkit.MPSCNode
		payload uint64
	}

	pool := lfkit.NewPagePool(os.Getpagesize())
	defer pool.Release()
	messages := lfkit.NewTypedResource[message](lfkit.NewNodeResource(pool))

	q := lfkit.NewMPSCQueue()
	ready := lfkit.NewSpinSemaphore()

	const producers = 4
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			m := messages.New()
			m.payload = uint64(p) * 100
			q.Push(&m.link)
			ready.Post(1)
		}(p)
	}

	var sum uint64
	backoff := iox.Backoff{}
	for range producers {
		ready.Wait()
		var m *message
		for {
			link := q.Pop()
			if link != nil {
				m = (*message)(unsafe.Pointer(link))
				break
			}
			// A push may still be in flight after its post.
			backoff.Wait()
		}
		sum += m.payload
		messages.Free(m)
	}
	wg.Wait()

	fmt.Println(sum)

	// Output:
	// 600
}
