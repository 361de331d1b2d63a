package bufferpool

import (
	"sync"

	"github.com/gxsoar/cmu15445/storage_engine/types"
)

// fakeDisk is an in-memory stand-in for diskmanager.Service, used so
// buffer pool tests can assert on exactly what was written back
// without touching the filesystem.
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
	if data, ok := d.pages[id]; ok {
		*buf = data
		return nil
	}
	for i := range buf {
		buf[i] = 0
	}
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
	id := d.nextID
	d.nextID++
	return types.PageID(id), nil
}

func (d *fakeDisk) DeallocatePage(id types.PageID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pages, id)
	return nil
}
