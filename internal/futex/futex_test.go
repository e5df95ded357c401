// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package futex_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/lfkit/internal/futex"
)

// TestWaitValueMismatch tests that Wait returns immediately when the
// word no longer holds the expected value.
func TestWaitValueMismatch(t *testing.T) {
	var w futex.Word
	w.Increment()

	done := make(chan struct{})
	go func() {
		w.Wait(0) // word holds 1
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait(stale) did not return within 5s")
	}
}

// TestWakeEpoch tests the epoch pattern: a sleeper parked on the old
// value is released by Increment+Wake.
func TestWakeEpoch(t *testing.T) {
	var w futex.Word
	released := make(chan struct{})
	go func() {
		for w.Load() == 0 {
			w.Wait(0)
		}
		close(released)
	}()

	// Let the sleeper park, then bump and wake. Wait may not have parked
	// yet; the bump alone also releases it through the value check.
	time.Sleep(10 * time.Millisecond)
	before := futex.WakeCalls()
	w.Increment()
	w.Wake(1)
	if got := futex.WakeCalls(); got != before+1 {
		t.Fatalf("WakeCalls: got %d, want %d", got, before+1)
	}

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("sleeper not released within 5s")
	}
}

// TestWakeBatch tests that one Wake releases up to n sleepers.
func TestWakeBatch(t *testing.T) {
	const sleepers = 4
	var w futex.Word
	var wg sync.WaitGroup
	for range sleepers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w.Load() == 0 {
				w.Wait(0)
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	w.Increment()
	w.Wake(sleepers)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sleepers not released within 5s")
	}
}
