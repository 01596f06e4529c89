package eventpool

// Handler is the callback invoked when a registered FD becomes ready, or
// when the worker dispatching it retires.
//
// On a normal dispatch, at least one of pollIn/pollOut/pollErr is true and
// pollerDied is false. On a poller-death notification (delivered to slots
// registered with notifyOnPollerDeath=true, once per worker retirement),
// pollIn, pollOut, and pollErr are all false, pollerDied is true, and the
// handler must not touch the slot via handle — it is being retired — and
// must return promptly.
//
// handle and gen identify the registration this call is for. On a normal
// dispatch, gen is the slot's generation at dispatch time and must be
// passed back unchanged to Pool.Handled. On a poller-death call, gen is the
// pool's poller-death generation at that retirement (see DESIGN.md, Open
// Question 3) and there is nothing to call Handled for.
type Handler func(fd int, handle int32, gen uint32, data any, pollIn, pollOut, pollErr, pollerDied bool)
