package replacer

import (
	"container/list"
	"sync"

	"github.com/gxsoar/cmu15445/storage_engine/types"
)

/*
LRUReplacer tracks the subset of frames in one buffer pool instance
that are currently unpinned and therefore eligible for eviction. It is
a doubly linked list (container/list) ordered most-recently-unpinned
at the front and least-recently-unpinned at the back, paired with a
map from frame id to list element for O(1) Pin/Unpin — the same shape
the pack's minidb and array-db replacers use, extended here with the
hard capacity cap and idempotent-unpin contract spec.md §4.1 requires.
*/
type LRUReplacer struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	elements map[types.FrameID]*list.Element
}

// NewLRUReplacer creates a replacer that never tracks more than
// capacity frames at once.
func NewLRUReplacer(capacity int) *LRUReplacer {
	return &LRUReplacer{
		capacity: capacity,
		order:    list.New(),
		elements: make(map[types.FrameID]*list.Element, capacity),
	}
}

// Unpin makes frame eligible for eviction. A frame already tracked is
// left untouched — re-unpinning does not refresh its recency, because
// the buffer pool is the authority on pin state and only calls Unpin
// once pin_count reaches zero. If tracking frame would exceed
// capacity, the least-recently-unpinned frame is dropped first.
func (r *LRUReplacer) Unpin(frame types.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, tracked := r.elements[frame]; tracked {
		return
	}

	if r.order.Len() >= r.capacity {
		back := r.order.Back()
		if back != nil {
			r.order.Remove(back)
			delete(r.elements, back.Value.(types.FrameID))
		}
	}

	r.elements[frame] = r.order.PushFront(frame)
}

// Pin removes frame from the tracked set, if present. A subsequent
// Victim call will never select it until it is Unpinned again.
func (r *LRUReplacer) Pin(frame types.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elem, tracked := r.elements[frame]; tracked {
		r.order.Remove(elem)
		delete(r.elements, frame)
	}
}

// Victim removes and returns the least-recently-unpinned frame. ok is
// false if no frame is currently tracked.
func (r *LRUReplacer) Victim() (frame types.FrameID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	back := r.order.Back()
	if back == nil {
		return 0, false
	}

	frame = back.Value.(types.FrameID)
	r.order.Remove(back)
	delete(r.elements, frame)
	return frame, true
}

// Size returns the number of frames currently tracked as evictable.
func (r *LRUReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}
