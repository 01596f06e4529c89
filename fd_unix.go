//go:build linux || darwin

package eventpool

import (
	"golang.org/x/sys/unix"
)

// closeFD closes a file descriptor, used by slot.release once a slot's
// refcount reaches zero and do_close was requested via UnregisterClose.
func closeFD(fd int) error {
	return unix.Close(fd)
}
