// Package nameservice implements the append-only, eventually-consistent
// pointer store mapping a ledger ID to its latest commit: publish, lookup,
// list-branches, delete, and subscribe.
package nameservice

import (
	"context"
	"time"

	"github.com/graphledger/graphledger/internal/ledger"
)

// Record is one published pointer: the branch's latest commit id and the t
// it represents, plus the wall-clock time of publication. Concurrent
// publishers are ordered by Publish's expectPrev check, not by At.
type Record struct {
	ID       ledger.ID
	CommitID string
	T        int64
	At       time.Time
}

// Service is the pointer store interface; internal/nameservice/localns
// implements it over a local directory of JSON pointer files plus fsnotify,
// internal/nameservice/natsns over a NATS JetStream key-value bucket; other
// deployments could implement it over etcd/consul/S3 notifications.
type Service interface {
	// Publish records commitID as id's latest pointer. If a concurrent
	// publisher already advanced id past expectPrev, Publish returns
	// errs.ErrStaleNotify rather than overwriting a newer pointer with an
	// older one.
	Publish(ctx context.Context, id ledger.ID, expectPrev, commitID string, t int64) error

	// Lookup returns the current record for id.
	Lookup(ctx context.Context, id ledger.ID) (Record, error)

	// ListBranches returns every branch currently published under alias.
	ListBranches(ctx context.Context, alias string) ([]string, error)

	// Delete removes id's pointer entirely (branch deletion).
	Delete(ctx context.Context, id ledger.ID) error

	// Subscribe streams Records as they change for id until ctx is
	// canceled or the returned channel's consumer stops reading.
	Subscribe(ctx context.Context, id ledger.ID) (<-chan Record, error)

	// Release relinquishes any resources Subscribe allocated (e.g.
	// fsnotify watches) for id once no more subscribers remain.
	Release(id ledger.ID) error
}
