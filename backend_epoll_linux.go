//go:build linux

package eventpool

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// epollBackend is the Linux Backend implementation built on
// epoll_create1/epoll_ctl/epoll_wait. Readiness must carry an opaque 64-bit
// payload (the handle/generation pair from the most recent arming) through
// the kernel, and epoll's event union only exposes two int32 halves, so this
// backend splits that payload across unix.EpollEvent's Fd/Pad fields.
type epollBackend struct {
	epfd atomic.Int32
}

// newBackend creates the Linux kernel readiness handle. sizeHint is passed
// to epoll_create's legacy "size" parameter semantics only in spirit —
// epoll_create1 ignores it, but callers in an upstream transport may still
// want parity with the pre-epoll_create1 constructor shape.
func newBackend(sizeHint int) (Backend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	b := &epollBackend{}
	b.epfd.Store(int32(fd))
	return b, nil
}

func maskToEpoll(m EventMask) uint32 {
	var e uint32
	if m&EventReadable != 0 {
		e |= unix.EPOLLIN
	}
	if m&EventWritable != 0 {
		e |= unix.EPOLLOUT
	}
	if m&EventError != 0 {
		e |= unix.EPOLLERR
	}
	if m&EventHangup != 0 {
		e |= unix.EPOLLHUP
	}
	if m&EventPriority != 0 {
		e |= unix.EPOLLPRI
	}
	if m&EventOneShot != 0 {
		e |= unix.EPOLLONESHOT | unix.EPOLLET
	}
	return e
}

func epollToMask(e uint32) EventMask {
	var m EventMask
	if e&unix.EPOLLIN != 0 {
		m |= EventReadable
	}
	if e&unix.EPOLLOUT != 0 {
		m |= EventWritable
	}
	if e&unix.EPOLLERR != 0 {
		m |= EventError
	}
	if e&unix.EPOLLHUP != 0 {
		m |= EventHangup
	}
	if e&unix.EPOLLPRI != 0 {
		m |= EventPriority
	}
	return m
}

func (b *epollBackend) ctl(op int, fd int, mask EventMask, data uint64) error {
	ev := unix.EpollEvent{
		Events: maskToEpoll(mask),
		Fd:     int32(uint32(data)),
		Pad:    int32(uint32(data >> 32)),
	}
	return unix.EpollCtl(int(b.epfd.Load()), op, fd, &ev)
}

func (b *epollBackend) Arm(fd int, mask EventMask, data uint64) error {
	return b.ctl(unix.EPOLL_CTL_ADD, fd, mask, data)
}

func (b *epollBackend) Modify(fd int, mask EventMask, data uint64) error {
	return b.ctl(unix.EPOLL_CTL_MOD, fd, mask, data)
}

func (b *epollBackend) Detach(fd int) error {
	return unix.EpollCtl(int(b.epfd.Load()), unix.EPOLL_CTL_DEL, fd, nil)
}

func (b *epollBackend) Wait(buf []Event, timeoutMs int) (int, error) {
	var raw [1]unix.EpollEvent
	n, err := unix.EpollWait(int(b.epfd.Load()), raw[:1], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	data := uint64(uint32(raw[0].Fd)) | uint64(uint32(raw[0].Pad))<<32
	buf[0] = Event{Mask: epollToMask(raw[0].Events), Data: data}
	return 1, nil
}

func (b *epollBackend) Close() error {
	return unix.Close(int(b.epfd.Load()))
}
