package diskmanager

import (
	"os"
	"sync"
)

/*
DiskManager is the concrete, file-backed DiskService used by tests and
the demo command. It owns a single os.File and a monotonically
increasing page-identifier allocator; reclaimed identifiers go on a
free list so AllocatePage can reuse them, mirroring the teacher's
NextPageID counter but without the per-file (fileID<<32|local) global
id encoding — this module's page space is already partitioned across
buffer pool instances by page_id mod N, so a single flat id space per
DiskManager is all the core needs.
*/
type DiskManager struct {
	file     *os.File
	mu       sync.Mutex
	nextID   int32
	freeList []int32
}
