//go:build unix

package lockfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// FlockExclusiveBlocking acquires an exclusive lock on the file, blocking
// until it becomes available.
func FlockExclusiveBlocking(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

// FlockUnlock releases a lock held on the file.
func FlockUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
