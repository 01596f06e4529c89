package eventpool

// EventMask is a bitmask of readiness conditions, matching §6's contract:
// "a mask of {readable, writable, error, hangup, priority} plus a one-shot
// flag."
type EventMask uint32

const (
	// EventReadable indicates the FD is ready for reading.
	EventReadable EventMask = 1 << iota
	// EventWritable indicates the FD is ready for writing.
	EventWritable
	// EventError indicates an error condition on the FD.
	EventError
	// EventHangup indicates the peer closed its end.
	EventHangup
	// EventPriority indicates urgent/out-of-band data is available.
	EventPriority
	// EventOneShot requests the kernel disable further delivery after the
	// next event until explicitly re-armed. Always set by Pool when arming
	// or modifying — see registration.go.
	EventOneShot
)

// baseEvents is the set of bits every arming always carries, per §4.3:
// "initializes events to {error, hangup, priority, one-shot}".
const baseEvents = EventError | EventHangup | EventPriority | EventOneShot

// Event is a single fired readiness notification returned by Backend.Wait.
// Data carries the opaque 64-bit payload from the most recent arming —
// Pool encodes (handle, gen) into it; see encodePayload/decodePayload.
type Event struct {
	Mask EventMask
	Data uint64
}

// Backend is the kernel readiness facility contract of §6: create a handle
// sized by a hint, arm/re-arm/detach FDs against it carrying an opaque
// payload, and wait for fired events. §9's design note calls for dynamic
// dispatch over demultiplexer backends "modeled as a variant / capability
// set with the nine operations of §6" — Backend is the set of five
// kernel-facing primitives; Pool implements all nine operations (New,
// Register, SelectOn, Unregister, UnregisterClose, Dispatch,
// ReconfigureThreads, Destroy, Handled) on top of it.
//
// Implementations: backend_epoll_linux.go (Linux, epoll) and
// backend_kqueue_darwin.go (Darwin, kqueue).
type Backend interface {
	// Arm registers fd for the given mask, carrying data as the event's
	// opaque payload. Returns an error if the kernel rejects the request.
	Arm(fd int, mask EventMask, data uint64) error

	// Modify re-arms an already-registered fd with a new mask and/or
	// payload.
	Modify(fd int, mask EventMask, data uint64) error

	// Detach removes fd from the readiness set. Idempotent with respect to
	// an fd that was already detached or never armed, returning an error
	// the caller may choose to ignore (§7: "Failure to detach during
	// unregister still releases references").
	Detach(fd int) error

	// Wait blocks for up to one fired event (timeoutMs < 0 means no
	// timeout), writing it into buf[0] and returning 1, or returns (0, nil)
	// on timeout or an interrupted wait. buf must have length >= 1.
	Wait(buf []Event, timeoutMs int) (int, error)

	// Close releases the kernel handle. Must not be called while any
	// worker may still be waiting on it.
	Close() error
}

// encodePayload packs a slot handle and generation into the 64-bit opaque
// payload carried by the kernel facility, low 32 bits first.
func encodePayload(handle int32, gen uint32) uint64 {
	return uint64(uint32(handle)) | uint64(gen)<<32
}

// decodePayload unpacks a payload produced by encodePayload.
func decodePayload(payload uint64) (handle int32, gen uint32) {
	return int32(uint32(payload)), uint32(payload >> 32)
}
