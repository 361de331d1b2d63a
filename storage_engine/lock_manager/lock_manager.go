package lockmanager

import (
	"fmt"

	txn "github.com/gxsoar/cmu15445/storage_engine/transaction_manager"
	"github.com/gxsoar/cmu15445/storage_engine/types"
)

// getQueue returns the queue for rid, creating it under the table
// mutex if this is the first request against that tuple. The table
// mutex is held only long enough to look up or insert the map entry;
// all subsequent waiting happens on the queue's own mutex.
func (lm *LockManager) getQueue(rid types.RID) *queue {
	lm.tableMu.Lock()
	q, ok := lm.queues[rid]
	if !ok {
		q = newQueue()
		lm.queues[rid] = q
	}
	lm.tableMu.Unlock()
	return q
}

// woundYoungerLocked implements spec.md §4.4.2: every request already
// in the queue that belongs to a strictly younger transaction and is
// incompatible with mode is wounded immediately, whether or not it was
// already granted. q.mu must be held by the caller.
func (lm *LockManager) woundYoungerLocked(q *queue, requester types.TxnID, mode LockMode) {
	remaining := q.requests[:0]
	wounded := false
	for _, r := range q.requests {
		if r.TxnID > requester && !compatible(r.Mode, mode) {
			fmt.Printf("[LockManager] WOUND txn=%d by txn=%d mode=%s\n", r.TxnID, requester, mode)
			if target, ok := lm.registry.GetTransaction(r.TxnID); ok {
				target.SetState(txn.Aborted)
			}
			wounded = true
			continue
		}
		remaining = append(remaining, r)
	}
	q.requests = remaining
	if wounded {
		q.cond.Broadcast()
	}
}

// canGrantLocked reports whether req may be granted right now: no
// other request in the queue is both granted and incompatible with
// req's mode. The waiter runs woundYoungerLocked right before every
// check, so any younger incompatible holder has already been wounded
// and removed, and a remaining conflict
// can only come from an older, still-active holder that req must wait
// behind. q.mu must be held by the caller.
func (lm *LockManager) canGrantLocked(q *queue, req *Request) bool {
	for _, r := range q.requests {
		if r == req || !r.Granted {
			continue
		}
		if !compatible(r.Mode, req.Mode) {
			return false
		}
	}
	return true
}

// removeRequestLocked deletes the (idle or granted) request belonging
// to txnID with the given mode, if it is still present. It is a no-op
// if the request was already removed — by a wounder, or by a prior
// call — which keeps Unlock and the self-removal path on abort
// idempotent. q.mu must be held by the caller.
func (lm *LockManager) removeRequestLocked(q *queue, txnID types.TxnID, mode LockMode) {
	for i, r := range q.requests {
		if r.TxnID == txnID && r.Mode == mode {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			return
		}
	}
}

// removeRequestObjLocked deletes req itself by identity, if present.
func (lm *LockManager) removeRequestObjLocked(q *queue, req *Request) {
	for i, r := range q.requests {
		if r == req {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			return
		}
	}
}

// insertExclusive enqueues an exclusive request ahead of any other
// not-yet-granted request, so that a newly arriving writer is the
// first ungranted entry a later wounding scan or diagnostic walk of
// the queue will see. Granting itself is governed purely by
// canGrantLocked and does not depend on queue position.
func insertExclusive(q *queue, req *Request) {
	for i, r := range q.requests {
		if !r.Granted {
			q.requests = append(q.requests[:i], append([]*Request{req}, q.requests[i:]...)...)
			return
		}
	}
	q.requests = append(q.requests, req)
}

// LockShared acquires a shared lock on rid for t, per spec.md §4.4.1.
// It returns (true, nil) once granted, (false, nil) if t was wounded
// while waiting, and (false, err) with an *AbortError if the request
// was illegal outright.
func (lm *LockManager) LockShared(t *txn.Transaction, rid types.RID) (bool, error) {
	if t.HasShared(rid) || t.HasExclusive(rid) {
		return true, nil
	}
	if t.Isolation() == txn.ReadUncommitted {
		t.SetState(txn.Aborted)
		return false, &AbortError{Reason: LockSharedOnReadUncommitted, TxnID: t.ID(), RID: rid}
	}
	if t.State() == txn.Shrinking {
		t.SetState(txn.Aborted)
		return false, &AbortError{Reason: LockOnShrinking, TxnID: t.ID(), RID: rid}
	}

	q := lm.getQueue(rid)
	q.mu.Lock()
	defer q.mu.Unlock()

	req := &Request{TxnID: t.ID(), Mode: Shared}
	q.requests = append(q.requests, req)

	for {
		if t.State() == txn.Aborted {
			lm.removeRequestObjLocked(q, req)
			q.cond.Broadcast()
			return false, nil
		}
		lm.woundYoungerLocked(q, t.ID(), Shared)
		if lm.canGrantLocked(q, req) {
			req.Granted = true
			t.AddShared(rid)
			return true, nil
		}
		q.cond.Wait()
	}
}

// LockExclusive acquires an exclusive lock on rid for t.
func (lm *LockManager) LockExclusive(t *txn.Transaction, rid types.RID) (bool, error) {
	if t.HasExclusive(rid) {
		return true, nil
	}
	if t.State() == txn.Shrinking {
		t.SetState(txn.Aborted)
		return false, &AbortError{Reason: LockOnShrinking, TxnID: t.ID(), RID: rid}
	}

	q := lm.getQueue(rid)
	q.mu.Lock()
	defer q.mu.Unlock()

	req := &Request{TxnID: t.ID(), Mode: Exclusive}
	insertExclusive(q, req)

	for {
		if t.State() == txn.Aborted {
			lm.removeRequestObjLocked(q, req)
			q.cond.Broadcast()
			return false, nil
		}
		lm.woundYoungerLocked(q, t.ID(), Exclusive)
		if lm.canGrantLocked(q, req) {
			req.Granted = true
			t.AddExclusive(rid)
			return true, nil
		}
		q.cond.Wait()
	}
}

// LockUpgrade promotes t's shared lock on rid to exclusive. If t holds
// no shared lock on rid, it is treated as a fresh exclusive request.
// Per spec.md §4.4.1, an upgrade attempted outside GROWING is a
// protocol violation distinct from an ordinary new-lock-on-SHRINKING
// abort — this is checked before the has-shared branch below, so a
// transaction that already released every lock it held (and so no
// longer HasShared(rid)) still gets UPGRADE_CONFLICT for calling
// LockUpgrade at all while SHRINKING, rather than falling through to
// LockExclusive and aborting with the wrong reason.
func (lm *LockManager) LockUpgrade(t *txn.Transaction, rid types.RID) (bool, error) {
	if t.HasExclusive(rid) {
		return true, nil
	}
	if t.State() != txn.Growing {
		t.SetState(txn.Aborted)
		return false, &AbortError{Reason: UpgradeConflict, TxnID: t.ID(), RID: rid}
	}
	if !t.HasShared(rid) {
		return lm.LockExclusive(t, rid)
	}

	q := lm.getQueue(rid)
	q.mu.Lock()
	lm.removeRequestLocked(q, t.ID(), Shared)
	q.mu.Unlock()
	t.RemoveShared(rid)

	return lm.LockExclusive(t, rid)
}

// Unlock releases whichever lock t holds on rid and, for REPEATABLE
// READ, moves t into SHRINKING. READ_COMMITTED and READ_UNCOMMITTED
// transactions may continue acquiring new locks after releasing one,
// per spec.md §4.4.1's per-isolation-level SHRINKING rules. Unlock is
// idempotent: releasing a lock t does not hold, or that a wounder has
// already stripped from the queue, succeeds as a no-op.
func (lm *LockManager) Unlock(t *txn.Transaction, rid types.RID) bool {
	held := t.HasShared(rid)
	heldExclusive := t.HasExclusive(rid)
	if !held && !heldExclusive {
		return true
	}

	q := lm.getQueue(rid)
	q.mu.Lock()
	if held {
		lm.removeRequestLocked(q, t.ID(), Shared)
	}
	if heldExclusive {
		lm.removeRequestLocked(q, t.ID(), Exclusive)
	}
	q.cond.Broadcast()
	q.mu.Unlock()

	if held {
		t.RemoveShared(rid)
	}
	if heldExclusive {
		t.RemoveExclusive(rid)
	}

	if t.Isolation() == txn.RepeatableRead && t.State() == txn.Growing {
		t.SetState(txn.Shrinking)
	}
	return true
}
