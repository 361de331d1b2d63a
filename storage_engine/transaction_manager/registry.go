package txn

import (
	"sync"
	"sync/atomic"

	"github.com/gxsoar/cmu15445/storage_engine/types"
)

/*
Registry is the TransactionRegistry collaborator from spec.md §6: it
lets the lock manager look up a transaction by id in order to wound it,
without the lock manager needing to hold a reference to every
transaction it might ever touch. It is grounded on the teacher's
TxnManager.activeTxns map, generalized to carry isolation levels and
2PL state instead of the teacher's simpler Active/Committed/Aborted
model.
*/
type Registry struct {
	mu     sync.RWMutex
	byID   map[types.TxnID]*Transaction
	nextID atomic.Uint64
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[types.TxnID]*Transaction)}
}

// Begin creates a new transaction with a fresh, monotonically
// increasing identifier and registers it as active.
func (r *Registry) Begin(isolation IsolationLevel) *Transaction {
	id := types.TxnID(r.nextID.Add(1) - 1)
	t := New(id, isolation)

	r.mu.Lock()
	r.byID[id] = t
	r.mu.Unlock()

	return t
}

// GetTransaction looks up a transaction by id. ok is false if the id
// is unknown (never registered, or already reaped).
func (r *Registry) GetTransaction(id types.TxnID) (*Transaction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// Commit transitions txn to COMMITTED and removes it from the active
// set.
func (r *Registry) Commit(t *Transaction) {
	t.SetState(Committed)
	r.mu.Lock()
	delete(r.byID, t.id)
	r.mu.Unlock()
}

// Abort transitions txn to ABORTED and removes it from the active set.
func (r *Registry) Abort(t *Transaction) {
	t.SetState(Aborted)
	r.mu.Lock()
	delete(r.byID, t.id)
	r.mu.Unlock()
}
