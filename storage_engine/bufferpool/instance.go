package bufferpool

import (
	"fmt"

	diskmanager "github.com/gxsoar/cmu15445/storage_engine/disk_manager"
	"github.com/gxsoar/cmu15445/storage_engine/page"
	"github.com/gxsoar/cmu15445/storage_engine/replacer"
	"github.com/gxsoar/cmu15445/storage_engine/types"
)

/*
This is the main file of the buffer pool instance.
One instance owns poolSize frames and every page whose identifier is
congruent to its index modulo instanceCount. It fetches, creates,
unpins, flushes, and deletes pages on behalf of callers, evicting via
the free list first and the LRU replacer second, writing back a dirty
victim before reuse — all under one mutex held for the duration of
each operation, including the write-back disk I/O, so a concurrent
FetchPage for the just-evicted id can never observe a half-written
frame (spec.md §4.2, "dirty write-back semantics").
*/

// NewBufferPoolInstance creates instance `index` of `instanceCount`
// cooperating instances, each holding up to `poolSize` frames.
func NewBufferPoolInstance(index, poolSize, instanceCount int, disk diskmanager.Service) *BufferPoolInstance {
	bp := &BufferPoolInstance{
		index:         index,
		poolSize:      poolSize,
		instanceCount: instanceCount,
		disk:          disk,
		frames:        make([]*page.Frame, poolSize),
		pageTable:     make(map[types.PageID]types.FrameID, poolSize),
		freeList:      make([]types.FrameID, poolSize),
		replacer:      replacer.NewLRUReplacer(poolSize),
		nextPageID:    int32(index),
	}

	for i := 0; i < poolSize; i++ {
		f := &page.Frame{}
		f.Reset()
		bp.frames[i] = f
		bp.freeList[i] = types.FrameID(i)
	}

	return bp
}

// GetPoolSize returns the number of frames this instance holds.
func (bp *BufferPoolInstance) GetPoolSize() int {
	return bp.poolSize
}

// NewPage creates a brand new page, pins it, and returns its
// identifier and frame. ok is false only when every frame is pinned.
func (bp *BufferPoolInstance) NewPage() (types.PageID, *page.Frame, bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameIdx, ok := bp.acquireFrame()
	if !ok {
		return types.InvalidPageID, nil, false
	}

	id := types.PageID(bp.nextPageID)
	bp.nextPageID += int32(bp.instanceCount)

	frame := bp.frames[frameIdx]
	frame.Reset()
	frame.PageID = id
	frame.PinCount = 1

	bp.pageTable[id] = frameIdx
	bp.replacer.Pin(frameIdx)

	return id, frame, true
}

// FetchPage returns the frame holding pageID, reading it from disk if
// it is not already resident. ok is false only when pageID is not
// resident and every frame is pinned with no free candidate.
func (bp *BufferPoolInstance) FetchPage(pageID types.PageID) (*page.Frame, bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameIdx, resident := bp.pageTable[pageID]; resident {
		frame := bp.frames[frameIdx]
		frame.PinCount++
		bp.replacer.Pin(frameIdx)
		return frame, true
	}

	frameIdx, ok := bp.acquireFrame()
	if !ok {
		return nil, false
	}

	frame := bp.frames[frameIdx]
	frame.Reset()
	frame.PageID = pageID
	_ = bp.disk.ReadPage(pageID, &frame.Data)
	frame.PinCount = 1

	bp.pageTable[pageID] = frameIdx
	bp.replacer.Pin(frameIdx)

	return frame, true
}

// UnpinPage decrements pageID's pin count. A page that is not resident
// is treated as a no-op success. Unpinning a page whose pin count is
// already zero fails.
func (bp *BufferPoolInstance) UnpinPage(pageID types.PageID, isDirty bool) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameIdx, resident := bp.pageTable[pageID]
	if !resident {
		return true
	}

	frame := bp.frames[frameIdx]
	if frame.PinCount <= 0 {
		return false
	}

	frame.PinCount--
	if isDirty {
		frame.IsDirty = true
	}
	if frame.PinCount == 0 {
		bp.replacer.Unpin(frameIdx)
	}

	return true
}

// FlushPage writes pageID's frame to disk and clears its dirty flag.
// Fails if pageID is not resident or is the sentinel.
func (bp *BufferPoolInstance) FlushPage(pageID types.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	return bp.flushLocked(pageID)
}

func (bp *BufferPoolInstance) flushLocked(pageID types.PageID) bool {
	if pageID == types.InvalidPageID {
		return false
	}

	frameIdx, resident := bp.pageTable[pageID]
	if !resident {
		return false
	}

	frame := bp.frames[frameIdx]
	fmt.Printf("[BufferPool %d] FLUSH pageID=%d dirty=%v\n", bp.index, pageID, frame.IsDirty)
	_ = bp.disk.WritePage(pageID, &frame.Data)
	frame.IsDirty = false
	return true
}

// FlushAllPages flushes every resident page, dirty or not.
func (bp *BufferPoolInstance) FlushAllPages() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pageID := range bp.pageTable {
		bp.flushLocked(pageID)
	}
}

// DeletePage removes pageID from the pool, returning its frame to the
// free list and its identifier to the disk service. A page that is
// not resident is treated as already deleted. Deleting a pinned page
// fails.
func (bp *BufferPoolInstance) DeletePage(pageID types.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameIdx, resident := bp.pageTable[pageID]
	if !resident {
		return true
	}

	frame := bp.frames[frameIdx]
	if frame.PinCount > 0 {
		return false
	}

	bp.replacer.Pin(frameIdx) // stop tracking it as evictable; it's going to the free list instead
	delete(bp.pageTable, pageID)
	frame.Reset()
	bp.freeList = append(bp.freeList, frameIdx)

	_ = bp.disk.DeallocatePage(pageID)
	return true
}

// acquireFrame returns a frame ready for reuse: the free list is
// always consulted first; the replacer's LRU victim is consulted only
// when the free list is empty. If the victim frame is dirty, it is
// written back before its mapping is removed. Caller must hold bp.mu.
func (bp *BufferPoolInstance) acquireFrame() (types.FrameID, bool) {
	if n := len(bp.freeList); n > 0 {
		frameIdx := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return frameIdx, true
	}

	frameIdx, ok := bp.replacer.Victim()
	if !ok {
		return 0, false
	}

	frame := bp.frames[frameIdx]
	if frame.PageID != types.InvalidPageID {
		fmt.Printf("[BufferPool %d] EVICT pageID=%d dirty=%v\n", bp.index, frame.PageID, frame.IsDirty)
		if frame.IsDirty {
			_ = bp.disk.WritePage(frame.PageID, &frame.Data)
			frame.IsDirty = false
		}
		delete(bp.pageTable, frame.PageID)
	}

	return frameIdx, true
}
