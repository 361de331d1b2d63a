package indexmanager

import (
	"sync"

	"github.com/gxsoar/cmu15445/storage_engine/types"
)

type fakeDisk struct {
	mu     sync.Mutex
	pages  map[types.PageID][types.PageSize]byte
	nextID int32
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{pages: make(map[types.PageID][types.PageSize]byte)}
}

func (d *fakeDisk) ReadPage(id types.PageID, buf *[types.PageSize]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	*buf = d.pages[id]
	return nil
}

func (d *fakeDisk) WritePage(id types.PageID, buf *[types.PageSize]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[id] = *buf
	return nil
}

func (d *fakeDisk) AllocatePage() (types.PageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := types.PageID(d.nextID)
	d.nextID++
	return id, nil
}

func (d *fakeDisk) DeallocatePage(id types.PageID) error {
	return nil
}
