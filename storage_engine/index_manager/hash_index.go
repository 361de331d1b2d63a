package indexmanager

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/gxsoar/cmu15445/storage_engine/bufferpool"
	"github.com/gxsoar/cmu15445/storage_engine/types"
)

type entry struct {
	key []byte
	rid types.RID
}

type bucketPage struct {
	entries    []entry
	localDepth uint32
}

func (b *bucketPage) full(capacity int) bool { return len(b.entries) >= capacity }

/*
HashIndex is a simplified extendible hash table: a directory of
2^globalDepth slots, each pointing at a bucket page, split on overflow
exactly as the original BusTub ExtendibleHashTable does (see
original_source/src/container/hash/extendible_hash_table.cpp's
SplitInsert) but without that implementation's templated key/value
comparator machinery.

Every bucket is allocated, fetched, and released through the same
ParallelBufferPool contract a real page-backed bucket would use —
NewPage/FetchPage/UnpinPage — guarded by one table-wide
latch exactly as spec.md describes for the buffer-pool boundary. The
bucket's actual key/RID entries are kept in a side map rather than
marshaled into the frame's 4KB byte array: spec.md scopes only the
buffer-pool-contract interaction of the index, not full on-disk bucket
layout, so the byte-level encoding that full correctness would require
is left out by design. Buckets are never merged, so bucket pages are
never deleted, and the directory itself lives in memory rather than on
a page.
*/
type HashIndex struct {
	bp             *bufferpool.ParallelBufferPool
	mu             sync.RWMutex
	globalDepth    uint32
	directory      []types.PageID
	buckets        map[types.PageID]*bucketPage
	bucketCapacity int
}

func NewHashIndex(bp *bufferpool.ParallelBufferPool, bucketCapacity int) (*HashIndex, error) {
	id, _, ok := bp.NewPage()
	if !ok {
		return nil, fmt.Errorf("hash index: failed to allocate initial bucket page")
	}
	bp.UnpinPage(id, true)

	return &HashIndex{
		bp:             bp,
		globalDepth:    0,
		directory:      []types.PageID{id},
		buckets:        map[types.PageID]*bucketPage{id: {}},
		bucketCapacity: bucketCapacity,
	}, nil
}

func hashKey(key []byte) uint32 {
	h := fnv.New32a()
	h.Write(key)
	return h.Sum32()
}

func (h *HashIndex) directoryIndex(key []byte) uint32 {
	mask := uint32(1)<<h.globalDepth - 1
	return hashKey(key) & mask
}

// GetValue returns every RID indexed under key.
func (h *HashIndex) GetValue(key []byte) ([]types.RID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	pid := h.directory[h.directoryIndex(key)]
	if _, ok := h.bp.FetchPage(pid); !ok {
		return nil, false
	}
	defer h.bp.UnpinPage(pid, false)

	b := h.buckets[pid]
	var out []types.RID
	for _, e := range b.entries {
		if bytes.Equal(e.key, key) {
			out = append(out, e.rid)
		}
	}
	return out, len(out) > 0
}

// Insert adds (key, rid) to the index, splitting the owning bucket —
// and doubling the directory if necessary — as many times as it takes
// to make room.
func (h *HashIndex) Insert(key []byte, rid types.RID) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.insertLocked(key, rid)
}

func (h *HashIndex) insertLocked(key []byte, rid types.RID) (bool, error) {
	idx := h.directoryIndex(key)
	pid := h.directory[idx]
	if _, ok := h.bp.FetchPage(pid); !ok {
		return false, fmt.Errorf("hash index: bucket page %d is not resident", pid)
	}
	b := h.buckets[pid]

	if !b.full(h.bucketCapacity) {
		b.entries = append(b.entries, entry{key: append([]byte(nil), key...), rid: rid})
		h.bp.UnpinPage(pid, true)
		return true, nil
	}

	h.bp.UnpinPage(pid, false)
	if err := h.split(idx); err != nil {
		return false, err
	}
	return h.insertLocked(key, rid)
}

// split grows the bucket at directory index idx into two, doubling the
// directory first if the bucket's local depth has caught up to the
// global depth.
func (h *HashIndex) split(idx uint32) error {
	pid := h.directory[idx]
	b := h.buckets[pid]

	if b.localDepth == h.globalDepth {
		h.directory = append(h.directory, h.directory...)
		h.globalDepth++
	}
	newLocalDepth := b.localDepth + 1

	newPid, _, ok := h.bp.NewPage()
	if !ok {
		return fmt.Errorf("hash index: failed to allocate split bucket page")
	}
	newBucket := &bucketPage{localDepth: newLocalDepth}
	h.buckets[newPid] = newBucket
	b.localDepth = newLocalDepth

	splitBit := uint32(1) << (newLocalDepth - 1)
	for i := range h.directory {
		if h.directory[i] == pid && uint32(i)&splitBit != 0 {
			h.directory[i] = newPid
		}
	}

	old := b.entries
	b.entries = nil
	for _, e := range old {
		target := h.directory[h.directoryIndex(e.key)]
		if target == newPid {
			newBucket.entries = append(newBucket.entries, e)
		} else {
			b.entries = append(b.entries, e)
		}
	}

	h.bp.UnpinPage(newPid, true)
	return nil
}

// Remove deletes the (key, rid) pair from the index. It reports
// whether a matching entry was found.
func (h *HashIndex) Remove(key []byte, rid types.RID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	pid := h.directory[h.directoryIndex(key)]
	if _, ok := h.bp.FetchPage(pid); !ok {
		return false
	}
	b := h.buckets[pid]

	removed := false
	for i, e := range b.entries {
		if bytes.Equal(e.key, key) && e.rid == rid {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			removed = true
			break
		}
	}
	h.bp.UnpinPage(pid, removed)
	return removed
}

func (h *HashIndex) GlobalDepth() uint32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.globalDepth
}
