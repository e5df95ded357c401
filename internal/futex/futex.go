// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package futex provides a 32-bit wait/wake word for blocking
// primitives.
//
// On Linux, Wait and Wake map directly onto FUTEX_WAIT_PRIVATE and
// FUTEX_WAKE_PRIVATE. Elsewhere a hashed-bucket emulation provides the
// same contract: Wait sleeps only while the word still holds the
// expected value, and Wake releases up to n sleepers in a single call.
//
// Wait may return spuriously; callers re-check their own state and
// retry. The usual pattern is a wake epoch: sleepers read the word,
// re-check their condition, then Wait on the value they read; wakers
// bump the word before waking, so a sleep can never miss a wake that
// was issued after the condition check.
//
// The word must be operated on through this package only. It needs a
// raw addressable uint32 for the kernel, which is why it is not an
// atomix type.
package futex

import "sync/atomic"

// Word is a 32-bit futex word.
type Word struct {
	v uint32
}

// Load returns the current value of the word.
func (w *Word) Load() uint32 {
	return atomic.LoadUint32(&w.v)
}

// Increment bumps the word by one. Wakers call this before Wake so
// concurrent sleepers observe the change instead of sleeping.
func (w *Word) Increment() {
	atomic.AddUint32(&w.v, 1)
}

// wakeCalls counts Wake invocations process-wide. One Wake is one
// system call on Linux; tests bound wake traffic with it.
var wakeCalls atomic.Uint64

// WakeCalls returns the number of Wake calls made by the process.
func WakeCalls() uint64 {
	return wakeCalls.Load()
}
