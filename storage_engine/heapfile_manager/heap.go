package heapfilemanager

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/gxsoar/cmu15445/storage_engine/bufferpool"
	lockmanager "github.com/gxsoar/cmu15445/storage_engine/lock_manager"
	txn "github.com/gxsoar/cmu15445/storage_engine/transaction_manager"
	"github.com/gxsoar/cmu15445/storage_engine/types"
)

const (
	headerSize  = 12 // slotCount(4) + freeSpaceOffset(4) + nextPageID(4)
	slotDirSize = 8  // offset(4) + length(4); length < 0 marks a tombstone
)

/*
TableHeap is a slotted-page heap file: each page holds a small header
(tuple count, the offset free space starts at, and the next page in
the chain), a directory of (offset, length) slots growing forward from
the header, and tuple bytes packed backward from the end of the page —
the layout spec.md §11.2 calls for and the classic arrangement BusTub's
TablePage uses (see original_source/src/storage/page/table_page.cpp).

Every page touch goes through the ParallelBufferPool built earlier in
this module, and every tuple access is mediated by the LockManager:
readers take a shared lock, and updates and deletes an exclusive one
(upgrading a shared lock the transaction already holds), before the
page is ever fetched; InsertTuple takes its exclusive lock right after
placing the new tuple, once its RID exists. A ristretto cache sits in front of GetTuple, keyed by
RID, invalidated on every write that touches that RID — this is the
one component in the module that exercises the ristretto dependency
the teacher's go.mod declared but never used.
*/
type TableHeap struct {
	bp   *bufferpool.ParallelBufferPool
	lm   *lockmanager.LockManager
	mu   sync.Mutex
	head types.PageID

	cache *ristretto.Cache[uint64, []byte]
}

func ridKey(rid types.RID) uint64 {
	return uint64(uint32(rid.PageID))<<32 | uint64(rid.Slot)
}

// NewTableHeap allocates the heap's first page and wires it to bp and
// lm. cacheCost bounds the tuple cache's total size in bytes.
func NewTableHeap(bp *bufferpool.ParallelBufferPool, lm *lockmanager.LockManager, cacheCost int64) (*TableHeap, error) {
	numCounters := 10 * (cacheCost / 256)
	if numCounters < 100 {
		numCounters = 100
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
		NumCounters: numCounters,
		MaxCost:     cacheCost,
		BufferItems: 64,
		Cost:        func(v []byte) int64 { return int64(len(v)) },
	})
	if err != nil {
		return nil, fmt.Errorf("table heap: failed to create tuple cache: %w", err)
	}

	headID, _, ok := bp.NewPage()
	if !ok {
		return nil, fmt.Errorf("table heap: failed to allocate first page")
	}
	frame, ok := bp.FetchPage(headID)
	if !ok {
		return nil, fmt.Errorf("table heap: failed to fetch freshly allocated page %d", headID)
	}
	initPage(frame.Data[:], types.InvalidPageID)
	bp.UnpinPage(headID, true)

	return &TableHeap{bp: bp, lm: lm, head: headID, cache: cache}, nil
}

func initPage(data []byte, next types.PageID) {
	binary.LittleEndian.PutUint32(data[0:4], 0)
	binary.LittleEndian.PutUint32(data[4:8], uint32(types.PageSize))
	binary.LittleEndian.PutUint32(data[8:12], uint32(int32(next)))
}

func slotCount(data []byte) int32     { return int32(binary.LittleEndian.Uint32(data[0:4])) }
func freeSpaceOff(data []byte) int32  { return int32(binary.LittleEndian.Uint32(data[4:8])) }
func nextPageID(data []byte) types.PageID {
	return types.PageID(int32(binary.LittleEndian.Uint32(data[8:12])))
}

func setSlotCount(data []byte, n int32)    { binary.LittleEndian.PutUint32(data[0:4], uint32(n)) }
func setFreeSpaceOff(data []byte, off int32) { binary.LittleEndian.PutUint32(data[4:8], uint32(off)) }
func setNextPageID(data []byte, id types.PageID) {
	binary.LittleEndian.PutUint32(data[8:12], uint32(int32(id)))
}

func slotEntry(data []byte, slot int32) (offset, length int32) {
	base := headerSize + int(slot)*slotDirSize
	offset = int32(binary.LittleEndian.Uint32(data[base : base+4]))
	length = int32(int32(binary.LittleEndian.Uint32(data[base+4 : base+8])))
	return
}

func setSlotEntry(data []byte, slot, offset, length int32) {
	base := headerSize + int(slot)*slotDirSize
	binary.LittleEndian.PutUint32(data[base:base+4], uint32(offset))
	binary.LittleEndian.PutUint32(data[base+4:base+8], uint32(length))
}

// tryInsert appends data to the page if there is room, returning the
// new slot index.
func tryInsert(data []byte, tuple []byte) (int32, bool) {
	n := slotCount(data)
	free := freeSpaceOff(data)
	dirEnd := int32(headerSize) + n*slotDirSize

	if free-dirEnd < int32(len(tuple))+slotDirSize {
		return 0, false
	}

	newOffset := free - int32(len(tuple))
	copy(data[newOffset:newOffset+int32(len(tuple))], tuple)
	setSlotEntry(data, n, newOffset, int32(len(tuple)))
	setSlotCount(data, n+1)
	setFreeSpaceOff(data, newOffset)
	return n, true
}

// InsertTuple writes a brand-new tuple, acquiring an exclusive lock on
// its RID once it has been placed so no concurrent transaction can
// read it before this one commits (per whatever isolation level t was
// opened with).
func (h *TableHeap) InsertTuple(t *txn.Transaction, tuple []byte) (types.RID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pid := h.head
	for {
		frame, ok := h.bp.FetchPage(pid)
		if !ok {
			return types.RID{}, fmt.Errorf("table heap: page %d is not resident", pid)
		}
		if slot, ok := tryInsert(frame.Data[:], tuple); ok {
			h.bp.UnpinPage(pid, true)
			rid := types.RID{PageID: pid, Slot: uint32(slot)}
			if ok, err := h.lm.LockExclusive(t, rid); !ok {
				if err != nil {
					return types.RID{}, fmt.Errorf("table heap: failed to lock new tuple %+v: %w", rid, err)
				}
				return types.RID{}, fmt.Errorf("table heap: transaction %d was wounded locking new tuple %+v", t.ID(), rid)
			}
			t.RecordWrite(txn.WriteRecord{RID: rid})
			return rid, nil
		}

		next := nextPageID(frame.Data[:])
		h.bp.UnpinPage(pid, false)
		if next != types.InvalidPageID {
			pid = next
			continue
		}

		newID, newFrame, ok := h.bp.NewPage()
		if !ok {
			return types.RID{}, fmt.Errorf("table heap: failed to allocate a new page")
		}
		initPage(newFrame.Data[:], types.InvalidPageID)

		tail, ok := h.bp.FetchPage(pid)
		if !ok {
			return types.RID{}, fmt.Errorf("table heap: page %d is not resident", pid)
		}
		setNextPageID(tail.Data[:], newID)
		h.bp.UnpinPage(pid, true)
		h.bp.UnpinPage(newID, true)
		pid = newID
	}
}

// GetTuple reads the tuple at rid, serving from the cache when
// possible. It first acquires a shared lock on rid for t (a no-op if t
// already holds a shared or exclusive lock on it), so the lock
// manager's isolation rules apply.
func (h *TableHeap) GetTuple(t *txn.Transaction, rid types.RID) ([]byte, error) {
	if ok, err := h.lm.LockShared(t, rid); !ok {
		if err != nil {
			return nil, fmt.Errorf("table heap: failed to lock tuple %+v: %w", rid, err)
		}
		return nil, fmt.Errorf("table heap: transaction %d was wounded waiting for tuple %+v", t.ID(), rid)
	}

	if cached, ok := h.cache.Get(ridKey(rid)); ok {
		return cached, nil
	}

	frame, ok := h.bp.FetchPage(rid.PageID)
	if !ok {
		return nil, fmt.Errorf("table heap: page %d is not resident", rid.PageID)
	}
	defer h.bp.UnpinPage(rid.PageID, false)

	if int32(rid.Slot) >= slotCount(frame.Data[:]) {
		return nil, fmt.Errorf("table heap: slot %d out of range on page %d", rid.Slot, rid.PageID)
	}
	offset, length := slotEntry(frame.Data[:], int32(rid.Slot))
	if length < 0 {
		return nil, fmt.Errorf("table heap: tuple %+v was deleted", rid)
	}

	out := make([]byte, length)
	copy(out, frame.Data[offset:offset+length])
	h.cache.Set(ridKey(rid), out, int64(length))
	return out, nil
}

// UpdateTuple overwrites the tuple at rid. If newData fits in the
// slot's current space the update happens in place and rid is
// unchanged; otherwise the old slot is tombstoned and the tuple is
// reinserted, which changes its RID.
func (h *TableHeap) UpdateTuple(t *txn.Transaction, rid types.RID, newData []byte) (types.RID, error) {
	lock := h.lm.LockExclusive
	if t.HasShared(rid) {
		lock = h.lm.LockUpgrade
	}
	if ok, err := lock(t, rid); !ok {
		if err != nil {
			return types.RID{}, fmt.Errorf("table heap: failed to lock tuple %+v for update: %w", rid, err)
		}
		return types.RID{}, fmt.Errorf("table heap: transaction %d was wounded locking tuple %+v for update", t.ID(), rid)
	}

	h.mu.Lock()
	frame, ok := h.bp.FetchPage(rid.PageID)
	if !ok {
		h.mu.Unlock()
		return types.RID{}, fmt.Errorf("table heap: page %d is not resident", rid.PageID)
	}
	offset, length := slotEntry(frame.Data[:], int32(rid.Slot))
	if length < 0 {
		h.bp.UnpinPage(rid.PageID, false)
		h.mu.Unlock()
		return types.RID{}, fmt.Errorf("table heap: tuple %+v was deleted", rid)
	}

	if int32(len(newData)) <= length {
		copy(frame.Data[offset:offset+int32(len(newData))], newData)
		setSlotEntry(frame.Data[:], int32(rid.Slot), offset, int32(len(newData)))
		h.bp.UnpinPage(rid.PageID, true)
		h.mu.Unlock()
		h.cache.Del(ridKey(rid))
		t.RecordWrite(txn.WriteRecord{RID: rid})
		return rid, nil
	}

	setSlotEntry(frame.Data[:], int32(rid.Slot), offset, -1)
	h.bp.UnpinPage(rid.PageID, true)
	h.mu.Unlock()
	h.cache.Del(ridKey(rid))

	return h.InsertTuple(t, newData)
}

// DeleteTuple tombstones the tuple at rid.
func (h *TableHeap) DeleteTuple(t *txn.Transaction, rid types.RID) error {
	lock := h.lm.LockExclusive
	if t.HasShared(rid) {
		lock = h.lm.LockUpgrade
	}
	if ok, err := lock(t, rid); !ok {
		if err != nil {
			return fmt.Errorf("table heap: failed to lock tuple %+v for delete: %w", rid, err)
		}
		return fmt.Errorf("table heap: transaction %d was wounded locking tuple %+v for delete", t.ID(), rid)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	frame, ok := h.bp.FetchPage(rid.PageID)
	if !ok {
		return fmt.Errorf("table heap: page %d is not resident", rid.PageID)
	}
	defer h.bp.UnpinPage(rid.PageID, true)

	offset, length := slotEntry(frame.Data[:], int32(rid.Slot))
	if length < 0 {
		return fmt.Errorf("table heap: tuple %+v was already deleted", rid)
	}
	setSlotEntry(frame.Data[:], int32(rid.Slot), offset, -1)
	h.cache.Del(ridKey(rid))
	t.RecordWrite(txn.WriteRecord{RID: rid})
	return nil
}

// HeadPageID returns the heap's first page, for tests and scans.
func (h *TableHeap) HeadPageID() types.PageID { return h.head }
