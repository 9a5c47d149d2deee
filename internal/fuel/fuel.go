// Package fuel implements the query executor's cost budget: a shared
// counter every pattern-execution step draws from, which cancels the query
// once exhausted.
package fuel

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/graphledger/graphledger/internal/engine/errs"
)

// Tracker is a shared, concurrency-safe fuel counter. Every executor
// goroutine working on the same query shares one Tracker so a budget set
// at the query root is enforced across all of its concurrent branches
// (joins, UNION arms, subject-crawl fan-out).
type Tracker struct {
	remaining int64
	start     time.Time
}

// New returns a Tracker with budget units of fuel available.
func New(budget int64) *Tracker {
	return &Tracker{remaining: budget, start: time.Now()}
}

// Spend deducts n units of fuel, returning errs.ErrFuelExceeded once the
// budget is exhausted. Safe for concurrent use.
func (t *Tracker) Spend(ctx context.Context, n int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if atomic.AddInt64(&t.remaining, -n) < 0 {
		return fmt.Errorf("%w: exceeded budget after %s", errs.ErrFuelExceeded, time.Since(t.start))
	}
	return nil
}

// Remaining reports the fuel left, which can go negative momentarily under
// concurrent overspend before Spend's caller observes the error.
func (t *Tracker) Remaining() int64 {
	return atomic.LoadInt64(&t.remaining)
}

// Elapsed reports how long this tracker has been alive, for query
// telemetry (latency per fuel spent).
func (t *Tracker) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Cost constants: the per-operation fuel charges the executor applies.
// Index scans dominate, so they're weighted by result cardinality rather
// than charged a flat fee per pattern.
const (
	CostPerFlakeScanned = 1
	CostPerJoinProbe    = 2
	CostPerFilterEval   = 1
)
