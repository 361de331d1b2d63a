package lockmanager

import (
	"fmt"
	"sync"

	txn "github.com/gxsoar/cmu15445/storage_engine/transaction_manager"
	"github.com/gxsoar/cmu15445/storage_engine/types"
)

// LockMode is the granularity this lock manager supports: whole-tuple
// shared or exclusive locks. SHARED is compatible with SHARED;
// EXCLUSIVE is compatible with nothing.
type LockMode uint8

const (
	Shared LockMode = iota
	Exclusive
)

func (m LockMode) String() string {
	if m == Exclusive {
		return "EXCLUSIVE"
	}
	return "SHARED"
}

func compatible(a, b LockMode) bool {
	return a == Shared && b == Shared
}

// Request is one entry in a tuple's lock queue.
type Request struct {
	TxnID   types.TxnID
	Mode    LockMode
	Granted bool
}

// queue is the per-tuple FIFO request list plus the condition variable
// waiters block on. Once created for a rid, a queue is never removed
// from the lock table (spec.md §3, "Lock queue ... never removed once
// created").
type queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	requests []*Request
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// AbortReason identifies why the lock manager refused a request
// outright rather than making the caller wait or wounding it.
type AbortReason uint8

const (
	LockSharedOnReadUncommitted AbortReason = iota
	LockOnShrinking
	UpgradeConflict
)

func (r AbortReason) String() string {
	switch r {
	case LockSharedOnReadUncommitted:
		return "LOCKSHARED_ON_READ_UNCOMMITTED"
	case LockOnShrinking:
		return "LOCK_ON_SHRINKING"
	case UpgradeConflict:
		return "UPGRADE_CONFLICT"
	default:
		return "UNKNOWN_ABORT_REASON"
	}
}

// AbortError is the sum-of-variants' "aborted(reason)" case: an illegal
// request under spec.md §4.4.1. It is an ordinary returned error, not a
// panic — the teacher's own code never uses panics for control flow,
// and spec.md §9 calls for representing this as a result variant that
// higher layers may translate into an exception at their boundary if
// they want one.
type AbortError struct {
	Reason AbortReason
	TxnID  types.TxnID
	RID    types.RID
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("txn %d aborted on %+v: %s", e.TxnID, e.RID, e.Reason)
}

// LockManager is the process-wide table keyed by tuple identifier. One
// coarse mutex protects the table's map from concurrent inserts of new
// queues; once a queue exists, all further synchronization for that
// tuple happens on the queue's own mutex and condition variable
// (spec.md §4.4.5, the "table mutex only for lookup" discipline).
type LockManager struct {
	tableMu sync.Mutex
	queues  map[types.RID]*queue

	registry *txn.Registry
}

// NewLockManager creates a lock manager that wounds transactions by
// looking them up in registry.
func NewLockManager(registry *txn.Registry) *LockManager {
	return &LockManager{
		queues:   make(map[types.RID]*queue),
		registry: registry,
	}
}
