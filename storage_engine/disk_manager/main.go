package diskmanager

import (
	"fmt"
	"os"

	"github.com/gxsoar/cmu15445/storage_engine/types"
)

/*
This is the main file for the disk manager.
It owns the OS file handle, reads/writes raw bytes at page-sized
offsets, and hands out fresh page identifiers on request. Everything
above this layer — the buffer pool, the table heap, the hash index —
talks to disk only through the Service interface, never through an
*os.File directly.
*/

// Service is the DiskService contract from spec.md §6: read/write a
// page by identifier, and allocate/deallocate identifiers on demand.
// Higher layers (BufferPoolInstance) depend only on this interface so
// tests can substitute an in-memory fake.
type Service interface {
	ReadPage(id types.PageID, buf *[types.PageSize]byte) error
	WritePage(id types.PageID, buf *[types.PageSize]byte) error
	AllocatePage() (types.PageID, error)
	DeallocatePage(id types.PageID) error
}

var _ Service = (*DiskManager)(nil)

// NewDiskManager opens (creating if necessary) the backing file at path.
func NewDiskManager(path string) (*DiskManager, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open disk file %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat disk file %s: %w", path, err)
	}

	nextID := int32(stat.Size() / types.PageSize)

	return &DiskManager{
		file:   file,
		nextID: nextID,
	}, nil
}

// ReadPage reads the page at id into buf. Reading a page beyond the
// current end of file yields a zeroed buffer rather than an error,
// matching the teacher's "pad with zeros if partial read" behavior for
// a page that was allocated but never flushed.
func (dm *DiskManager) ReadPage(id types.PageID, buf *[types.PageSize]byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(id) * types.PageSize
	n, err := dm.file.ReadAt(buf[:], offset)
	if err != nil && n == 0 {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	for i := n; i < types.PageSize; i++ {
		buf[i] = 0
	}
	return nil
}

// WritePage writes buf to the page at id.
func (dm *DiskManager) WritePage(id types.PageID, buf *[types.PageSize]byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(id) * types.PageSize
	if _, err := dm.file.WriteAt(buf[:], offset); err != nil {
		return fmt.Errorf("failed to write page %d: %w", id, err)
	}
	return nil
}

// AllocatePage reserves the next available page identifier. Reclaimed
// identifiers from DeallocatePage are reused first (LIFO), the same
// free-then-reuse discipline the buffer pool itself uses for frames.
func (dm *DiskManager) AllocatePage() (types.PageID, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if n := len(dm.freeList); n > 0 {
		id := dm.freeList[n-1]
		dm.freeList = dm.freeList[:n-1]
		return types.PageID(id), nil
	}

	id := dm.nextID
	dm.nextID++
	return types.PageID(id), nil
}

// DeallocatePage releases id back to the disk service so a future
// AllocatePage call may reuse it.
func (dm *DiskManager) DeallocatePage(id types.PageID) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.freeList = append(dm.freeList, int32(id))
	return nil
}

// Close syncs and closes the backing file.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.file.Sync(); err != nil {
		return err
	}
	return dm.file.Close()
}
