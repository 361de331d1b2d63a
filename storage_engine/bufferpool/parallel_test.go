package bufferpool

import (
	"testing"
)

func TestParallel_DispatchByModulo(t *testing.T) {
	const n = 4
	p := NewParallelBufferPool(n, 2, newFakeDisk())

	seen := make(map[int]bool)
	for i := 0; i < n*2; i++ {
		id, _, ok := p.NewPage()
		if !ok {
			t.Fatalf("NewPage() failed on iteration %d", i)
		}
		seen[int(id)%n] = true
		p.UnpinPage(id, false)
	}

	if len(seen) != n {
		t.Fatalf("expected pages to land in all %d instances, saw %d", n, len(seen))
	}

	id, _, ok := p.NewPage()
	if !ok {
		t.Fatalf("NewPage() failed")
	}
	owner := p.instanceFor(id)
	frameIdx, resident := owner.pageTable[id]
	if !resident {
		t.Fatalf("page %d is not resident in the instance that owns it", id)
	}
	if _, ok := p.FetchPage(id); !ok {
		t.Fatalf("FetchPage(%d) failed", id)
	}
	_ = frameIdx
}

func TestParallel_NewPageRoundRobinsAndExhausts(t *testing.T) {
	const n = 3
	p := NewParallelBufferPool(n, 1, newFakeDisk())

	// fill every instance's single frame.
	for i := 0; i < n; i++ {
		if _, _, ok := p.NewPage(); !ok {
			t.Fatalf("NewPage() failed filling instance %d", i)
		}
	}

	if _, _, ok := p.NewPage(); ok {
		t.Fatalf("NewPage() should fail once every instance is full")
	}
}

func TestParallel_GetPoolSize(t *testing.T) {
	p := NewParallelBufferPool(4, 16, newFakeDisk())
	if got := p.GetPoolSize(); got != 64 {
		t.Fatalf("GetPoolSize() = %d, want 64", got)
	}
}

func TestParallel_FlushAllPages(t *testing.T) {
	disk := newFakeDisk()
	p := NewParallelBufferPool(2, 2, disk)

	id, frame, _ := p.NewPage()
	frame.Data[0] = 9
	p.UnpinPage(id, true)

	p.FlushAllPages()

	if disk.pages[id][0] != 9 {
		t.Fatalf("FlushAllPages() did not flush the dirty page")
	}
}
