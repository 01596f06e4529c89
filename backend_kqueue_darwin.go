//go:build darwin

package eventpool

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// kqueueBackend is the Darwin Backend implementation: kevent construction
// (EV_ADD/EV_DELETE, EVFILT_READ/EVFILT_WRITE as separate filter
// registrations per FD). kqueue has no single combined read+write
// registration the way epoll does, so Modify must reconcile the requested
// mask against the previously-armed one, deleting filters that dropped out
// and re-adding (EV_ADD|EV_ONESHOT|EV_CLEAR) the ones present — EV_ONESHOT
// gives the auto-disarm-after-one-event semantics epoll's EPOLLONESHOT
// provides, and EV_CLEAR gives edge-triggered semantics to match EPOLLET.
//
// The opaque 64-bit payload has no int32/int32 split to reuse here (unlike
// epoll's Fd/Pad fields); Kevent_t.Udata is a *byte, so the payload is
// round-tripped through a uintptr, the same "store an integer bit pattern
// in a pointer-shaped field, never dereference it" idiom used by several
// epoll wrappers in the wild for carrying an opaque handle through the
// kernel (see DESIGN.md).
type kqueueBackend struct {
	kq atomic.Int32

	// armedFilters tracks which of EVFILT_READ/EVFILT_WRITE are currently
	// armed per-fd so Modify can compute the delta. Protected by mu since
	// Modify/Arm/Detach may be called concurrently for distinct FDs (and,
	// rarely, concurrently for the same FD from Register vs. a racing
	// SelectOn — callers serialize per-slot via the slot lock, but this
	// map is shared kernel-handle state, not per-slot state).
	mu  sync.Mutex
	set map[int]EventMask
}

func newBackend(sizeHint int) (Backend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	b := &kqueueBackend{set: make(map[int]EventMask, sizeHint)}
	b.kq.Store(int32(kq))
	return b, nil
}

func (b *kqueueBackend) changeList(fd int, want EventMask) []unix.Kevent_t {
	b.mu.Lock()
	had := b.set[fd]
	b.mu.Unlock()

	var changes []unix.Kevent_t
	if had&EventReadable != 0 && want&EventReadable == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE})
	}
	if had&EventWritable != 0 && want&EventWritable == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE})
	}
	return changes
}

func (b *kqueueBackend) arm(fd int, mask EventMask, data uint64, includeDeletes bool) error {
	var changes []unix.Kevent_t
	if includeDeletes {
		changes = b.changeList(fd, mask)
	}

	udata := (*byte)(unsafe.Pointer(uintptr(data)))
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if mask&EventOneShot != 0 {
		flags |= unix.EV_ONESHOT | unix.EV_CLEAR
	}

	if mask&EventReadable != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags, Udata: udata})
	}
	if mask&EventWritable != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags, Udata: udata})
	}

	if len(changes) > 0 {
		if _, err := unix.Kevent(int(b.kq.Load()), changes, nil, nil); err != nil {
			return err
		}
	}

	b.mu.Lock()
	b.set[fd] = mask & (EventReadable | EventWritable)
	b.mu.Unlock()
	return nil
}

func (b *kqueueBackend) Arm(fd int, mask EventMask, data uint64) error {
	return b.arm(fd, mask, data, false)
}

func (b *kqueueBackend) Modify(fd int, mask EventMask, data uint64) error {
	return b.arm(fd, mask, data, true)
}

func (b *kqueueBackend) Detach(fd int) error {
	changes := b.changeList(fd, 0)
	b.mu.Lock()
	delete(b.set, fd)
	b.mu.Unlock()
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(int(b.kq.Load()), changes, nil, nil)
	return err
}

func (b *kqueueBackend) Wait(buf []Event, timeoutMs int) (int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1_000_000),
		}
	}

	var raw [1]unix.Kevent_t
	n, err := unix.Kevent(int(b.kq.Load()), nil, raw[:1], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	kev := &raw[0]
	var mask EventMask
	switch kev.Filter {
	case unix.EVFILT_READ:
		mask |= EventReadable
	case unix.EVFILT_WRITE:
		mask |= EventWritable
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		mask |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		mask |= EventHangup
	}

	data := uint64(uintptr(unsafe.Pointer(kev.Udata)))
	buf[0] = Event{Mask: mask, Data: data}
	return 1, nil
}

func (b *kqueueBackend) Close() error {
	return unix.Close(int(b.kq.Load()))
}
