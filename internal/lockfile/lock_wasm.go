//go:build js && wasm

package lockfile

import "os"

// FlockExclusiveBlocking is a no-op in WASM: there's no separate process to
// contend with a lock on this file.
func FlockExclusiveBlocking(f *os.File) error {
	return nil
}

// FlockUnlock is a no-op in WASM.
func FlockUnlock(f *os.File) error {
	return nil
}
