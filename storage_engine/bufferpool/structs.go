package bufferpool

import (
	"sync"

	diskmanager "github.com/gxsoar/cmu15445/storage_engine/disk_manager"
	"github.com/gxsoar/cmu15445/storage_engine/page"
	"github.com/gxsoar/cmu15445/storage_engine/replacer"
	"github.com/gxsoar/cmu15445/storage_engine/types"
)

/*
BufferPoolInstance owns a fixed array of frames, a page-id -> frame-index
mapping, a free list, one LRU replacer, and the single mutex that
protects all of it. A page identifier belongs to exactly one instance,
determined by page_id mod instanceCount — see NewPage for how each
instance keeps its own id counter in step with that invariant.
*/
type BufferPoolInstance struct {
	index         int
	poolSize      int
	instanceCount int

	disk diskmanager.Service

	frames    []*page.Frame
	pageTable map[types.PageID]types.FrameID
	freeList  []types.FrameID
	replacer  *replacer.LRUReplacer

	nextPageID int32

	mu sync.Mutex
}

// ParallelBufferPool composes N buffer pool instances and routes every
// request by page_id mod N. It owns the instances for lifetime
// management only — no frame state ever crosses an instance boundary.
type ParallelBufferPool struct {
	instances []*BufferPoolInstance

	cursorMu sync.Mutex
	cursor   int
}
