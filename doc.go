// Package eventpool implements a multi-threaded, readiness-event
// demultiplexer: a reusable engine that registers file descriptors with
// the operating system's edge-triggered, one-shot readiness facility and
// dispatches fired events to user-supplied handlers across a pool of
// worker goroutines.
//
// # Architecture
//
// A [Pool] owns a single kernel readiness handle (epoll on Linux, kqueue on
// Darwin — see [Backend]), a two-level slot table keyed by a stable integer
// handle, and a fixed-capacity worker roster. Callers register FDs with
// [Pool.Register], which arms the FD with the kernel and returns a handle;
// workers started by [Pool.Dispatch] wait on the shared kernel handle and
// route each fired event to exactly one slot's handler. The registrant is
// responsible for calling [Pool.Handled] once its handler returns, which
// re-arms the FD for the next readiness edge.
//
// # Platform support
//
// The kernel readiness facility is implemented using platform-native
// mechanisms:
//   - Linux: epoll (backend_epoll_linux.go)
//   - Darwin: kqueue (backend_kqueue_darwin.go)
//
// Both are edge-triggered, one-shot variants of the [Backend] interface;
// see that type's doc comment for the capability-set design this enables.
//
// # Thread safety
//
// [Pool] is safe for concurrent use by any number of goroutines. The
// registration API ([Pool.Register], [Pool.SelectOn], [Pool.Unregister],
// [Pool.UnregisterClose], [Pool.Handled]) may be called from any goroutine,
// including from within a handler callback. At most one handler invocation
// runs per FD at any instant (the exclusion invariant).
//
// # Out of scope
//
// The concrete I/O a handler performs on a ready FD, logging policy beyond
// the [Logger] hook, the surrounding process/CLI, and fallback
// demultiplexers (poll/select) are external collaborators this package
// does not implement.
package eventpool
