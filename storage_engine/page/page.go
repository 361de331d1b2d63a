package page

import (
	"sync"

	"github.com/gxsoar/cmu15445/storage_engine/types"
)

/*
Frame is one in-memory slot of a buffer pool instance. It holds at most
one resident page at a time. PinCount and IsDirty are only ever mutated
while the owning instance holds its mutex; RWLatch is a separate,
higher-level latch that callers use to serialize reads/writes of the
frame's *contents* once it is resident — it is independent of the pin
discipline the buffer pool enforces.
*/
type Frame struct {
	PageID   types.PageID
	Data     [types.PageSize]byte
	PinCount int32
	IsDirty  bool
	RWLatch  sync.RWMutex
}

// reset returns the frame to its empty state: zeroed data, sentinel id,
// pin count and dirty flag cleared. Called by the buffer pool right
// before a frame is placed on the free list or reused for a new page.
func (f *Frame) reset() {
	f.PageID = types.InvalidPageID
	f.PinCount = 0
	f.IsDirty = false
	for i := range f.Data {
		f.Data[i] = 0
	}
}

// Reset is the exported form of reset, used by the buffer pool on
// DeletePage and by NewBufferPoolInstance when constructing frames.
func (f *Frame) Reset() {
	f.reset()
}
