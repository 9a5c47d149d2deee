// Package lockfile implements the OS-level file locking that backs
// single-writer-per-branch semantics: each branch's write lock lives at a
// path derived from its ledger.ID, and only one process may hold it at a
// time. Acquisition is blocking (a writer queues behind the current
// holder); Inspect offers a non-blocking peek at who, if anyone, holds it.
package lockfile

import "errors"

// ErrLockBusy is returned by a non-blocking lock attempt when another
// process already holds a conflicting lock on the branch.
var ErrLockBusy = errors.New("lockfile: branch locked by another process")
