package walmanager

import (
	"sync"

	"github.com/gxsoar/cmu15445/storage_engine/types"
)

// Record is one write-ahead log entry: the minimal fields a lock
// manager or heap writer needs to describe a change for undo purposes.
type Record struct {
	LSN    uint64
	TxnID  types.TxnID
	Table  string
	RID    types.RID
	Before []byte
}

// Service is the LogService collaborator spec.md §6 names: whatever
// calls into the transaction and heap layers can append a record and
// get back the LSN it was assigned, without those layers needing to
// know whether the log is ever flushed to disk.
type Service interface {
	Append(rec Record) uint64
}

/*
InMemoryLog is the only Service implementation this module ships.
Durability, flushing, checkpointing and replay are explicit spec.md
Non-goals for the core being built here, so this keeps every record in
memory for the life of the process — enough for the heap manager to
consult on an abort-triggered undo, not enough to survive a restart.
Grounded on the teacher's wal_manager package's LSN-assignment
discipline (a single monotonically increasing counter guarded by one
mutex), with the segment file, flush goroutine and replay path that
made it a true WAL removed.
*/
type InMemoryLog struct {
	mu      sync.Mutex
	records []Record
	nextLSN uint64
}

func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{nextLSN: 1}
}

func (l *InMemoryLog) Append(rec Record) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec.LSN = l.nextLSN
	l.nextLSN++
	l.records = append(l.records, rec)
	return rec.LSN
}

// RecordsForTxn returns every record appended on behalf of txnID, in
// append order, for use by an undo pass on abort.
func (l *InMemoryLog) RecordsForTxn(txnID types.TxnID) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for _, rec := range l.records {
		if rec.TxnID == txnID {
			out = append(out, rec)
		}
	}
	return out
}

var _ Service = (*InMemoryLog)(nil)
