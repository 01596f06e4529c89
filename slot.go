package eventpool

import (
	"container/list"
	"sync"
	"sync/atomic"
)

const (
	// outerWidth (T) and innerWidth (S) bound the pool's maximum
	// concurrent registrations at outerWidth*innerWidth. Both are small
	// constants per §4, lazily allocated one bucket at a time.
	outerWidth = 1024
	innerWidth = 1024

	// unusedFD is the sentinel marking a free slot (§3 invariant 1).
	unusedFD = -1
)

// slot is the per-FD bookkeeping row of §3. lock covers every mutable
// field below except ref, which is atomic so the lookup-by-handle hot path
// (dispatch.go, registration.go) never has to take the slot lock just to
// pin a reference.
//
// deathLinked/deathElem are mutated only while the pool mutex is held
// (allocation, dealloc, Unregister, and worker retirement all already hold
// it at the point they touch these fields) rather than the slot lock,
// because they describe membership in a structure (Pool.deathList) that is
// itself pool-mutex-protected; see DESIGN.md Open Question 4.
type slot struct {
	mu sync.Mutex

	fd           int32
	gen          uint32
	idx          int32
	events       EventMask
	handler      Handler
	data         any
	doClose      bool
	inHandler    int32
	handledError bool

	deathLinked bool
	deathElem   *list.Element

	ref atomic.Int32
}

// slotBucket is one outer-table entry: innerWidth slots plus an occupancy
// counter used to skip full buckets during allocation scans.
type slotBucket struct {
	slots     [innerWidth]slot
	slotsUsed int
}

func newSlotBucket() *slotBucket {
	b := &slotBucket{}
	for i := range b.slots {
		b.slots[i].fd = unusedFD
	}
	return b
}

// slotTable is the two-level, lazily-grown array of §4.1. Outer buckets are
// stored as atomic.Pointer so that lookup can read them without
// holding the pool mutex — buckets are created exactly once (under the
// pool mutex) and never freed until the pool itself is destroyed, so an
// atomic Load gives every reader either nil or a fully-initialized bucket,
// with no torn reads.
type slotTable struct {
	buckets [outerWidth]atomic.Pointer[slotBucket]

	// inUse and capacity track the aggregate occupancy/slot-capacity across
	// all buckets, for the metrics gauges in metrics.go. Mutated only under
	// the pool mutex, same as the rest of alloc/dealloc's bookkeeping.
	inUse    int
	capacity int
}

// handleFor computes the stable integer handle for a slot at the given
// outer/inner coordinates: outer*S + inner.
func handleFor(outer, inner int) int32 {
	return int32(outer*innerWidth + inner)
}

// alloc scans outer buckets in order, allocating the first uninitialized
// one it encounters, and returns the first free slot found. Must be called
// with the pool mutex held (the caller also makes the destroy-check and
// this allocation atomic with respect to each other — see §9 design note
// 1 and DESIGN.md Open Question 1).
func (t *slotTable) alloc(fd int) (*slot, int32, error) {
	for outer := 0; outer < outerWidth; outer++ {
		b := t.buckets[outer].Load()
		if b == nil {
			b = newSlotBucket()
			t.buckets[outer].Store(b)
			t.capacity += innerWidth
		}
		if b.slotsUsed >= innerWidth {
			continue
		}
		for inner := range b.slots {
			s := &b.slots[inner]
			if s.fd != unusedFD {
				continue
			}
			s.fd = int32(fd)
			s.gen++
			s.idx = handleFor(outer, inner)
			s.events = 0
			s.handler = nil
			s.data = nil
			s.doClose = false
			s.inHandler = 0
			s.handledError = false
			s.ref.Store(1)
			b.slotsUsed++
			t.inUse++
			return s, s.idx, nil
		}
	}
	return nil, -1, ErrCapacityExhausted
}

// lookup resolves a handle to its slot and pins a reference on it
// (invariant 2). Does not require the pool mutex: bucket pointers are
// append-only (see slotTable doc comment). Returns ErrInvalidHandle for an
// out-of-range handle or one whose bucket was never allocated.
func (t *slotTable) lookup(handle int32) (*slot, error) {
	if handle < 0 || int(handle) >= outerWidth*innerWidth {
		return nil, ErrInvalidHandle
	}
	outer := int(handle) / innerWidth
	inner := int(handle) % innerWidth
	b := t.buckets[outer].Load()
	if b == nil {
		return nil, ErrInvalidHandle
	}
	s := &b.slots[inner]
	s.ref.Add(1)
	return s, nil
}

// dealloc retires a slot: bumps gen, clears handled_error/in_handler,
// detaches death-list membership, and — only if the slot was in use —
// decrements the owning bucket's slotsUsed. Must be called with the pool
// mutex held and only once the slot's refcount has reached zero.
func (t *slotTable) dealloc(s *slot, deathList *list.List) {
	wasUsed := s.fd != unusedFD

	s.gen++
	s.fd = unusedFD
	s.handledError = false
	s.inHandler = 0
	s.handler = nil
	s.data = nil

	if s.deathLinked {
		deathList.Remove(s.deathElem)
		s.deathElem = nil
		s.deathLinked = false
	}

	if wasUsed {
		b := t.buckets[int(s.idx)/innerWidth].Load()
		b.slotsUsed--
		t.inUse--
	}
}

// release drops a reference acquired by lookup or alloc. If it was the
// last reference, the do_close decision is captured under the slot lock
// (per §4.1) before the slot is deallocated under the pool mutex, so that
// the close(2) call, if any, happens outside of any lock.
func (s *slot) release(p *Pool) {
	if s.ref.Add(-1) != 0 {
		return
	}

	s.mu.Lock()
	doClose := s.doClose
	fd := int(s.fd)
	s.mu.Unlock()

	p.mu.Lock()
	p.table.dealloc(s, p.deathList)
	p.metrics.setSlotsInUse(p.table.inUse)
	p.metrics.setSlotsCapacity(p.table.capacity)
	p.mu.Unlock()

	if doClose {
		_ = closeFD(fd)
	}
}

// releaseLocked is release's counterpart for callers that already hold the
// pool mutex (worker retirement, §4.5), which must not re-enter p.mu.Lock.
// It returns the fd to close, whether closing is required, and whether the
// slot was actually deallocated by this call (false means the slot is still
// registered and survives — the caller must re-link it onto the
// poller-death list if it had been spliced off for notification).
func (s *slot) releaseLocked(p *Pool) (fd int, doClose bool, deallocated bool) {
	if s.ref.Add(-1) != 0 {
		return 0, false, false
	}

	s.mu.Lock()
	doClose = s.doClose
	fd = int(s.fd)
	s.mu.Unlock()

	p.table.dealloc(s, p.deathList)
	p.metrics.setSlotsInUse(p.table.inUse)
	p.metrics.setSlotsCapacity(p.table.capacity)
	return fd, doClose, true
}
