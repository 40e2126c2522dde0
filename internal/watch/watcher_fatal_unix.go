// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// isUnrecoverable reports inotify exhaustion: the watch limit (ENOSPC) or the
// process or system descriptor limits (EMFILE, ENFILE).
func isUnrecoverable(err error) bool {
	for _, errno := range []syscall.Errno{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
