// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/lfkit"
)

// TestSemaphoreBasic tests token accounting without blocking.
func TestSemaphoreBasic(t *testing.T) {
	s := lfkit.NewSemaphore()

	if got := s.Tokens(); got != 0 {
		t.Fatalf("Tokens on new: got %d, want 0", got)
	}
	if s.TryWait() {
		t.Fatal("TryWait on empty: got true, want false")
	}

	s.Post(3)
	if got := s.Tokens(); got != 3 {
		t.Fatalf("Tokens after Post(3): got %d, want 3", got)
	}
	for i := range 3 {
		if !s.TryWait() {
			t.Fatalf("TryWait(%d): got false, want true", i)
		}
	}
	if s.TryWait() {
		t.Fatal("TryWait after drain: got true, want false")
	}

	// Post of zero is a no-op.
	s.Post(0)
	if got := s.Tokens(); got != 0 {
		t.Fatalf("Tokens after Post(0): got %d, want 0", got)
	}

	// Wait takes an available token without sleeping.
	s.Post(1)
	s.Wait()
	if got := s.Tokens(); got != 0 {
		t.Fatalf("Tokens after Wait: got %d, want 0", got)
	}
}

// TestSemaphoreWake tests that Post wakes a sleeping waiter.
func TestSemaphoreWake(t *testing.T) {
	s := lfkit.NewSemaphore()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	// Give the waiter a chance to go to sleep before the post.
	for s.Waiters() == 0 {
		time.Sleep(time.Millisecond)
	}
	s.Post(1)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not woken within 5s")
	}
	if got := s.Waiters(); got != 0 {
		t.Fatalf("Waiters after wake: got %d, want 0", got)
	}
}

// TestSemaphoreOverflow tests the 32-bit token cap: the post panics
// and leaves the state word untouched.
func TestSemaphoreOverflow(t *testing.T) {
	s := lfkit.NewSemaphore()
	s.Post(1<<32 - 1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
		if got := s.Tokens(); got != 1<<32-1 {
			t.Fatalf("Tokens after overflow panic: got %d, want %d", got, uint32(1<<32-1))
		}
		if got := s.Waiters(); got != 0 {
			t.Fatalf("Waiters after overflow panic: got %d, want 0", got)
		}
	}()
	s.Post(1)
}

// semaphore abstracts over the plain and spinning variants so the
// throughput workload runs against each variant's own Wait.
type semaphore interface {
	Post(n uint32)
	Wait()
	Tokens() uint32
	Waiters() uint32
}

// TestSemaphoreThroughput tests 8 waiters consuming a stream of posted
// tokens.
func TestSemaphoreThroughput(t *testing.T) {
	testSemaphoreThroughput(t, lfkit.NewSemaphore())
}

// TestSpinSemaphoreThroughput runs the same workload through the
// spinning variant.
func TestSpinSemaphoreThroughput(t *testing.T) {
	testSemaphoreThroughput(t, lfkit.NewSpinSemaphore())
}

func testSemaphoreThroughput(t *testing.T, s semaphore) {
	const (
		waiters  = 8
		perBatch = 100
		batches  = 50
	)
	var consumed atomic.Uint64
	var wg sync.WaitGroup
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range batches * perBatch / waiters {
				s.Wait()
				consumed.Add(1)
			}
		}()
	}

	for range batches {
		s.Post(perBatch)
	}
	wg.Wait()

	if got := consumed.Load(); got != batches*perBatch {
		t.Fatalf("consumed: got %d, want %d", got, batches*perBatch)
	}
	if got := s.Tokens(); got != 0 {
		t.Fatalf("Tokens after drain: got %d, want 0", got)
	}
	if got := s.Waiters(); got != 0 {
		t.Fatalf("Waiters after drain: got %d, want 0", got)
	}
}

// TestSpinSemaphoreBasic tests the spinning variant's fast paths.
func TestSpinSemaphoreBasic(t *testing.T) {
	s := lfkit.NewSpinSemaphore()

	s.Post(2)
	s.Wait()
	if !s.TryWait() {
		t.Fatal("TryWait: got false, want true")
	}
	if got := s.Tokens(); got != 0 {
		t.Fatalf("Tokens: got %d, want 0", got)
	}
}

// TestSpinSemaphoreSpinnerPickup tests that a token posted during the
// spin window is taken without sleeping.
func TestSpinSemaphoreSpinnerPickup(t *testing.T) {
	s := lfkit.NewSpinSemaphore()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	for s.Waiters() == 0 {
		time.Sleep(time.Millisecond)
	}
	// The waiter is inside its ~20ms spin budget; the post lands in a
	// spin window.
	time.Sleep(2 * time.Millisecond)
	s.Post(1)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("spinner not released within 5s")
	}
}

// TestSpinSemaphoreSleepAfterBudget tests the spinner falling through
// to the futex sleep: the post arrives only after the spin budget has
// likely elapsed, and the waiter must still be woken.
func TestSpinSemaphoreSleepAfterBudget(t *testing.T) {
	s := lfkit.NewSpinSemaphore()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	for s.Waiters() == 0 {
		time.Sleep(time.Millisecond)
	}
	// The spin budget is ~20ms; by now the waiter is asleep on most
	// runs, and the wake path must work either way.
	time.Sleep(60 * time.Millisecond)
	s.Post(1)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not woken after budget")
	}
	if got := s.Waiters(); got != 0 {
		t.Fatalf("Waiters after wake: got %d, want 0", got)
	}
}

// TestSpinSemaphoreCascade tests that a multi-token post releases both
// the spinner and the sleepers behind it.
func TestSpinSemaphoreCascade(t *testing.T) {
	const waiters = 4
	s := lfkit.NewSpinSemaphore()
	var wg sync.WaitGroup
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Wait()
		}()
	}

	for s.Waiters() != waiters {
		time.Sleep(time.Millisecond)
	}
	s.Post(waiters)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiters not released within 5s")
	}
}
