// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/lfkit/internal/futex"
)

// Semaphore state word layout:
//
//	bits  0-31  token count
//	bit   32    spinner flag (SpinSemaphore only)
//	bits 33-63  waiter count
const (
	semTokenMask   uint64 = 1<<32 - 1
	semSpinnerBit  uint64 = 1 << 32
	semWaiterOne   uint64 = 1 << 33
	semWaiterShift        = 33
)

// Semaphore is a futex-backed counting semaphore.
//
// Post never blocks and issues at most one futex wake system call per
// call. Wait grabs a token when one is available and otherwise sleeps
// on the futex word; spurious wakeups are retried transparently. There
// is no fairness guarantee: wake selection is kernel-defined.
//
// The zero value is ready to use with zero tokens.
type Semaphore struct {
	_    pad
	word atomix.Uint64 // tokens, spinner flag, waiter count
	_    pad
	sleep futex.Word // wake epoch: bumped once per wake batch
	_     padShort
}

// NewSemaphore creates a semaphore with zero tokens.
func NewSemaphore() *Semaphore {
	return &Semaphore{}
}

// Post releases n tokens and wakes up to n sleeping waiters with a
// single system call. A post of zero is a no-op. The waiters themselves
// take the tokens; a post releases-synchronizes-with the waits that
// obtain its tokens.
//
// Panics if the 32-bit token count would overflow, before any state
// changes; exceeding the cap is a programming error, not a runtime
// condition.
func (s *Semaphore) Post(n uint32) {
	if n == 0 {
		return
	}
	sw := spin.Wait{}
	var prev uint64
	for {
		prev = s.word.LoadRelaxed()
		if (prev&semTokenMask)+uint64(n) > semTokenMask {
			panic("lfkit: semaphore token count overflow")
		}
		if s.word.CompareAndSwapAcqRel(prev, prev+uint64(n)) {
			break
		}
		sw.Once()
	}
	if prev&semSpinnerBit != 0 {
		// The spinner observes the new tokens within its window and
		// cascades any further wakeups in user space.
		return
	}
	if prev>>semWaiterShift > prev&semTokenMask {
		s.sleep.Increment()
		s.sleep.Wake(n)
	}
}

// TryWait grabs a token without blocking. Returns false if none is
// available.
func (s *Semaphore) TryWait() bool {
	sw := spin.Wait{}
	for {
		w := s.word.LoadRelaxed()
		if w&semTokenMask == 0 {
			return false
		}
		if s.word.CompareAndSwapAcqRel(w, w-1) {
			return true
		}
		sw.Once()
	}
}

// Wait blocks until a token is available and takes it.
func (s *Semaphore) Wait() {
	sw := spin.Wait{}
	for {
		w := s.word.LoadRelaxed()
		if w&semTokenMask > 0 {
			if s.word.CompareAndSwapAcqRel(w, w-1) {
				return
			}
			sw.Once()
			continue
		}
		// No tokens: register as a waiter, then sleep.
		if s.word.CompareAndSwapRelaxed(w, w+semWaiterOne) {
			break
		}
		sw.Once()
	}
	s.waitRegistered()
}

// waitRegistered is the sleep loop of a registered waiter: take a token
// and deregister in one CAS, or sleep on the wake epoch. The epoch is
// read before the token re-check, so a post that lands in between bumps
// the epoch and the sleep returns immediately.
func (s *Semaphore) waitRegistered() {
	sw := spin.Wait{}
	for {
		w := s.word.LoadRelaxed()
		if w&semTokenMask > 0 {
			if s.word.CompareAndSwapAcqRel(w, w-1-semWaiterOne) {
				return
			}
			sw.Once()
			continue
		}
		e := s.sleep.Load()
		if s.word.LoadRelaxed()&semTokenMask != 0 {
			continue
		}
		s.sleep.Wait(e)
	}
}

// Tokens returns a snapshot of the token count.
func (s *Semaphore) Tokens() uint32 {
	return uint32(s.word.LoadRelaxed() & semTokenMask)
}

// Waiters returns a snapshot of the waiter count, an upper bound on the
// threads currently inside Wait without a token.
func (s *Semaphore) Waiters() uint32 {
	return uint32(s.word.LoadRelaxed() >> semWaiterShift)
}

// SpinSemaphore is a Semaphore whose waiters spin in user space before
// sleeping.
//
// At most one waiter at a time is the spinner: it claims the spinner
// flag, runs the calibrated delay loop for about 20ms observing the
// state word roughly every 100us, and sleeps only if no token shows up.
// While a spinner exists, Post makes no system calls at all; the
// spinner takes its token in user space and cascades one futex wake for
// the remaining tokens. The spinner role stays with the claiming waiter
// for its whole budget; it does not transfer on a token hand-off.
type SpinSemaphore struct {
	Semaphore
}

// NewSpinSemaphore creates a spinning semaphore with zero tokens and
// runs the one-time delay loop calibration if it has not happened yet.
func NewSpinSemaphore() *SpinSemaphore {
	CalibrateDelayLoop()
	return &SpinSemaphore{}
}

// Wait blocks until a token is available and takes it, spinning first
// when no other waiter already holds the spinner role.
func (s *SpinSemaphore) Wait() {
	sw := spin.Wait{}
	for {
		w := s.word.LoadRelaxed()
		if w&semTokenMask > 0 {
			if s.word.CompareAndSwapAcqRel(w, w-1) {
				return
			}
			sw.Once()
			continue
		}
		if w&semSpinnerBit == 0 {
			// Claim the spinner role and register in one step.
			if s.word.CompareAndSwapRelaxed(w, (w+semWaiterOne)|semSpinnerBit) {
				if s.spinRegistered() {
					return
				}
				// Budget elapsed, spinner flag already cleared; sleep
				// as an ordinary registered waiter.
				s.waitRegistered()
				return
			}
			sw.Once()
			continue
		}
		// Somebody else spins; register and sleep.
		if s.word.CompareAndSwapRelaxed(w, w+semWaiterOne) {
			s.waitRegistered()
			return
		}
		sw.Once()
	}
}

// spinRegistered runs the spin budget while holding the spinner flag.
// Returns true when a token was taken. On timeout it clears the flag,
// keeps the waiter registration, and returns false.
func (s *SpinSemaphore) spinRegistered() bool {
	CalibrateDelayLoop()
	for range spinWindows {
		delayWindow()
		w := s.word.LoadRelaxed()
		for w&semTokenMask > 0 {
			tokens := w & semTokenMask
			next := (w - 1 - semWaiterOne) &^ semSpinnerBit
			if s.word.CompareAndSwapAcqRel(w, next) {
				// Cascade: hand the remaining tokens to sleepers with
				// one wake call.
				if tokens > 1 && next>>semWaiterShift > 0 {
					s.sleep.Increment()
					s.sleep.Wake(uint32(tokens - 1))
				}
				return true
			}
			w = s.word.LoadRelaxed()
		}
	}
	return s.spinTimeout()
}

// spinTimeout releases the spinner role when the budget elapses.
// Posts that landed after the last window check trusted the spinner to
// cascade, so tokens found here are taken and cascaded exactly like an
// in-window grab; otherwise the flag is cleared with the waiter
// registration kept and the caller falls through to sleep. Returns true
// when a token was taken.
func (s *SpinSemaphore) spinTimeout() bool {
	sw := spin.Wait{}
	for {
		w := s.word.LoadRelaxed()
		if tokens := w & semTokenMask; tokens > 0 {
			next := (w - 1 - semWaiterOne) &^ semSpinnerBit
			if s.word.CompareAndSwapAcqRel(w, next) {
				if tokens > 1 && next>>semWaiterShift > 0 {
					s.sleep.Increment()
					s.sleep.Wake(uint32(tokens - 1))
				}
				return true
			}
			sw.Once()
			continue
		}
		if s.word.CompareAndSwapRelaxed(w, w&^semSpinnerBit) {
			return false
		}
		sw.Once()
	}
}
