package eventpool

import (
	"container/list"
	"testing"
)

func TestSlotTableAllocPreservesGenAcrossReuse(t *testing.T) {
	var table slotTable

	s1, h1, err := table.alloc(7)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if s1.gen != 1 {
		t.Fatalf("expected gen 1 on first alloc, got %d", s1.gen)
	}

	dl := list.New()
	table.dealloc(s1, dl)
	if s1.fd != unusedFD {
		t.Fatalf("expected fd reset to unused, got %d", s1.fd)
	}
	genAfterDealloc := s1.gen

	s2, h2, err := table.alloc(9)
	if err != nil {
		t.Fatalf("alloc after dealloc: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected handle reuse, got %d then %d", h1, h2)
	}
	if s2.gen <= genAfterDealloc {
		t.Fatalf("expected gen to strictly increase on reuse: before=%d after=%d", genAfterDealloc, s2.gen)
	}
	if s2.gen != 3 {
		t.Fatalf("expected gen bumped to 3 on reuse (1 on alloc, 2 on dealloc, 3 on realloc), got %d", s2.gen)
	}
}

func TestSlotTableLookupInvalidHandle(t *testing.T) {
	var table slotTable

	if _, err := table.lookup(-1); err != ErrInvalidHandle {
		t.Fatalf("expected ErrInvalidHandle for negative handle, got %v", err)
	}
	if _, err := table.lookup(outerWidth * innerWidth); err != ErrInvalidHandle {
		t.Fatalf("expected ErrInvalidHandle for out-of-range handle, got %v", err)
	}
	// A handle inside an unallocated outer bucket is also invalid.
	if _, err := table.lookup(handleFor(5, 0)); err != ErrInvalidHandle {
		t.Fatalf("expected ErrInvalidHandle for unallocated bucket, got %v", err)
	}
}

func TestSlotTableAllocExhaustion(t *testing.T) {
	var table slotTable
	for outer := 0; outer < outerWidth; outer++ {
		b := newSlotBucket()
		for i := range b.slots {
			b.slots[i].fd = 1
		}
		b.slotsUsed = innerWidth
		table.buckets[outer].Store(b)
	}

	if _, _, err := table.alloc(1); err != ErrCapacityExhausted {
		t.Fatalf("expected ErrCapacityExhausted, got %v", err)
	}
}

func TestHandleForRoundTrips(t *testing.T) {
	for _, tc := range []struct{ outer, inner int }{
		{0, 0}, {0, 1}, {1, 0}, {3, 500}, {outerWidth - 1, innerWidth - 1},
	} {
		h := handleFor(tc.outer, tc.inner)
		gotOuter := int(h) / innerWidth
		gotInner := int(h) % innerWidth
		if gotOuter != tc.outer || gotInner != tc.inner {
			t.Fatalf("handleFor(%d,%d)=%d round-tripped to (%d,%d)", tc.outer, tc.inner, h, gotOuter, gotInner)
		}
	}
}
