package eventpool

import (
	"errors"
	"fmt"
)

// Standard errors returned by Pool's methods. Each error's comment names
// the operations that return it.
var (
	// ErrPoolClosed is returned by Register when the pool is being or has
	// been destroyed.
	ErrPoolClosed = errors.New("eventpool: pool closed")

	// ErrCapacityExhausted is returned by Register when no free slot exists
	// and none can be newly allocated.
	ErrCapacityExhausted = errors.New("eventpool: no free slot available")

	// ErrInvalidHandle is returned when a handle is out of range, refers to
	// a free slot, or the caller-supplied FD no longer matches the slot's
	// current registration.
	ErrInvalidHandle = errors.New("eventpool: invalid handle")

	// ErrKernelArmingFailure is returned when the OS readiness primitive
	// rejects an arm, modify, or detach operation.
	ErrKernelArmingFailure = errors.New("eventpool: kernel arming failure")

	// ErrDispatchNotStarted is returned by ReconfigureThreads when called
	// before Dispatch has started worker 1.
	ErrDispatchNotStarted = errors.New("eventpool: dispatch not yet started")

	// ErrAlreadyDispatched is returned by Dispatch when called a second
	// time on a pool that already has a running worker 1.
	ErrAlreadyDispatched = errors.New("eventpool: already dispatched")

	// ErrWorkersStillActive is returned by Close when workers have not
	// yet drained to zero via ReconfigureThreads(0).
	ErrWorkersStillActive = errors.New("eventpool: workers still active")
)

// wrapArmingFailure wraps a backend syscall error so callers can still
// unwrap the underlying cause with errors.Is/errors.As while comparing
// against ErrKernelArmingFailure.
func wrapArmingFailure(op string, fd int, cause error) error {
	return fmt.Errorf("%w: %s fd=%d: %w", ErrKernelArmingFailure, op, fd, cause)
}
