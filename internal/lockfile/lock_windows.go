//go:build windows

package lockfile

import (
	"os"

	"golang.org/x/sys/windows"
)

// FlockExclusiveBlocking acquires an exclusive lock on the file, blocking
// until it becomes available.
func FlockExclusiveBlocking(f *os.File) error {
	ol := &windows.Overlapped{}
	return windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK,
		0,
		0xFFFFFFFF,
		0xFFFFFFFF,
		ol,
	)
}

// FlockUnlock releases a lock held on the file.
func FlockUnlock(f *os.File) error {
	ol := &windows.Overlapped{}
	return windows.UnlockFileEx(
		windows.Handle(f.Fd()),
		0,
		0xFFFFFFFF,
		0xFFFFFFFF,
		ol,
	)
}
