// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfkit

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
)

// The spinner contract: observe the semaphore word roughly once per
// 100us for about 20ms before giving up and sleeping.
const (
	spinWindow  = 100 * time.Microsecond
	spinWindows = 200
)

// delaySink absorbs the delay loop's stores so the compiler cannot
// elide the loop body.
var delaySink atomix.Uint64

// delayLoop burns CPU for iters relaxed load/store round trips.
//
//go:noinline
func delayLoop(iters uint64) {
	for i := uint64(0); i < iters; i++ {
		delaySink.StoreRelaxed(delaySink.LoadRelaxed() + 1)
	}
}

var (
	calibrateOnce sync.Once
	windowIters   uint64 // iterations per ~100us window
)

// CalibrateDelayLoop measures, once per process, how many delay loop
// iterations last about one spin window on this CPU. It runs
// automatically when the first SpinSemaphore is created; call it from
// bootstrap to move the one-time cost off the first wait.
func CalibrateDelayLoop() {
	calibrateOnce.Do(calibrate)
}

func calibrate() {
	const probe = 1 << 14
	best := time.Duration(1<<63 - 1)
	// Warm up once, then take the best of three to dodge scheduler noise.
	delayLoop(probe)
	for range 3 {
		start := time.Now()
		delayLoop(probe)
		if d := time.Since(start); d < best {
			best = d
		}
	}
	if best <= 0 {
		best = time.Nanosecond
	}
	iters := uint64(probe * float64(spinWindow) / float64(best))
	if iters < 1<<10 {
		iters = 1 << 10
	}
	if iters > 1<<30 {
		iters = 1 << 30
	}
	windowIters = iters
}

// delayWindow runs one calibrated ~100us window.
func delayWindow() {
	delayLoop(windowIters)
}
