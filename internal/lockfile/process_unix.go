//go:build unix || linux || darwin

package lockfile

import "syscall"

// isProcessRunning reports whether pid names a live process, used by
// Inspect to flag a branch lock as stale when its recorded holder is gone.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false // 0 would signal our own process group, not a specific process
	}
	return syscall.Kill(pid, 0) == nil
}
