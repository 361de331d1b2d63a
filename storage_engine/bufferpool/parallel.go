package bufferpool

import (
	diskmanager "github.com/gxsoar/cmu15445/storage_engine/disk_manager"
	"github.com/gxsoar/cmu15445/storage_engine/page"
	"github.com/gxsoar/cmu15445/storage_engine/types"
)

/*
ParallelBufferPool shards the page space across N independent buffer
pool instances, each with its own mutex and replacer, so that unrelated
pages never contend on the same lock. Dispatch is by page_id mod N;
NewPage has no page_id to dispatch on yet, so it round-robins across
instances starting from a shared cursor, advancing the cursor whether
or not the attempt succeeds.
*/

// NewParallelBufferPool creates instanceCount instances, each sized
// poolSize, all backed by the same disk service.
func NewParallelBufferPool(instanceCount, poolSize int, disk diskmanager.Service) *ParallelBufferPool {
	instances := make([]*BufferPoolInstance, instanceCount)
	for i := 0; i < instanceCount; i++ {
		instances[i] = NewBufferPoolInstance(i, poolSize, instanceCount, disk)
	}
	return &ParallelBufferPool{instances: instances}
}

func (p *ParallelBufferPool) instanceFor(id types.PageID) *BufferPoolInstance {
	n := len(p.instances)
	idx := int(id) % n
	if idx < 0 {
		idx += n
	}
	return p.instances[idx]
}

// FetchPage dispatches to the instance that owns pageID.
func (p *ParallelBufferPool) FetchPage(pageID types.PageID) (*page.Frame, bool) {
	return p.instanceFor(pageID).FetchPage(pageID)
}

// UnpinPage dispatches to the instance that owns pageID.
func (p *ParallelBufferPool) UnpinPage(pageID types.PageID, isDirty bool) bool {
	return p.instanceFor(pageID).UnpinPage(pageID, isDirty)
}

// FlushPage dispatches to the instance that owns pageID.
func (p *ParallelBufferPool) FlushPage(pageID types.PageID) bool {
	return p.instanceFor(pageID).FlushPage(pageID)
}

// DeletePage dispatches to the instance that owns pageID.
func (p *ParallelBufferPool) DeletePage(pageID types.PageID) bool {
	return p.instanceFor(pageID).DeletePage(pageID)
}

// NewPage tries each instance once, starting from the round-robin
// cursor, returning the first success. It only reports failure after
// every instance has refused in this call. The cursor is never reset
// on failure, so the next caller probes a different instance first.
func (p *ParallelBufferPool) NewPage() (types.PageID, *page.Frame, bool) {
	n := len(p.instances)

	p.cursorMu.Lock()
	start := p.cursor
	p.cursor = (p.cursor + 1) % n
	p.cursorMu.Unlock()

	for attempt := 0; attempt < n; attempt++ {
		idx := (start + attempt) % n
		if id, frame, ok := p.instances[idx].NewPage(); ok {
			return id, frame, true
		}
	}

	return types.InvalidPageID, nil, false
}

// FlushAllPages flushes every instance.
func (p *ParallelBufferPool) FlushAllPages() {
	for _, inst := range p.instances {
		inst.FlushAllPages()
	}
}

// GetPoolSize returns the total number of frames across all instances.
func (p *ParallelBufferPool) GetPoolSize() int {
	total := 0
	for _, inst := range p.instances {
		total += inst.GetPoolSize()
	}
	return total
}
