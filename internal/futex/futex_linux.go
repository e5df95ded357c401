// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package futex

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Futex operations from <linux/futex.h>; x/sys exports the syscall
// number only. The private flag skips the cross-process hash lookup.
const (
	futexWait        = 0
	futexWake        = 1
	futexPrivateFlag = 128

	futexWaitPrivate = futexWait | futexPrivateFlag
	futexWakePrivate = futexWake | futexPrivateFlag
)

// Wait sleeps until the word no longer holds expected or a wake
// arrives. Returns immediately if the value already differs. May return
// spuriously (EINTR); callers retry.
func (w *Word) Wait(expected uint32) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(&w.v)),
		uintptr(futexWaitPrivate),
		uintptr(expected),
		0, 0, 0)
}

// Wake releases up to n sleepers in one system call and returns the
// number released.
func (w *Word) Wake(n uint32) int {
	wakeCalls.Add(1)
	r, _, _ := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(&w.v)),
		uintptr(futexWakePrivate),
		uintptr(n),
		0, 0, 0)
	return int(r)
}
