// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// Win32 codes after which ReadDirectoryChangesW cannot continue.
const (
	errnoTooManyOpenFiles = syscall.Errno(4)
	errnoInvalidHandle    = syscall.Errno(6)
	errnoNotEnoughMemory  = syscall.Errno(8)
)

// isUnrecoverable reports handle exhaustion, a vanished watch root or a
// failed buffer allocation.
func isUnrecoverable(err error) bool {
	for _, errno := range []syscall.Errno{errnoTooManyOpenFiles, errnoInvalidHandle, errnoNotEnoughMemory} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
