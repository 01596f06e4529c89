package eventpool

// Tri-valued interest update encoding shared by Register and SelectOn (§4.3):
// Enable turns a bit on, Clear turns it off, Unchanged leaves it as-is. Any
// other value is logged and treated as Unchanged.
const (
	Clear     = 0
	Enable    = 1
	Unchanged = -1
)

func applyIntent(events EventMask, bit EventMask, intent int) EventMask {
	switch intent {
	case Enable:
		return events | bit
	case Clear:
		return events &^ bit
	default:
		return events
	}
}

func isValidIntent(intent int) bool {
	return intent == Clear || intent == Enable || intent == Unchanged
}

// logInvalidIntents reports read/write intent values outside
// {Clear, Enable, Unchanged} before they're silently treated as Unchanged.
func (p *Pool) logInvalidIntents(category string, handle int32, fd int, wantRead, wantWrite int) {
	if !isValidIntent(wantRead) {
		p.logger.Log(LogEntry{Level: LevelWarn, Category: category, PoolID: p.id, Handle: handle, FD: fd, Message: "unrecognized read intent value, treated as Unchanged"})
	}
	if !isValidIntent(wantWrite) {
		p.logger.Log(LogEntry{Level: LevelWarn, Category: category, PoolID: p.id, Handle: handle, FD: fd, Message: "unrecognized write intent value, treated as Unchanged"})
	}
}

// Register arms fd with the kernel, associating handler and data with it.
// wantRead/wantWrite use the tri-valued Enable/Clear/Unchanged encoding;
// Unchanged is equivalent to Clear on a fresh registration since a new
// slot's events start at baseEvents (no read/write bits set). If
// notifyOnPollerDeath is true, the slot is enrolled in the poller-death
// registry and its handler will additionally be invoked with poller_died
// set to true each time any worker retires.
//
// Register fails with ErrPoolClosed if the pool is being destroyed, or
// ErrCapacityExhausted if no slot can be allocated. A kernel arming failure
// rolls back the allocation and returns a wrapped ErrKernelArmingFailure.
func (p *Pool) Register(fd int, handler Handler, data any, wantRead, wantWrite int, notifyOnPollerDeath bool) (int32, error) {
	p.mu.Lock()
	if p.destroy {
		p.mu.Unlock()
		return -1, ErrPoolClosed
	}

	s, handle, err := p.table.alloc(fd)
	if err != nil {
		p.mu.Unlock()
		p.metrics.observeCapacityExhausted()
		return -1, err
	}
	p.metrics.setSlotsInUse(p.table.inUse)
	p.metrics.setSlotsCapacity(p.table.capacity)

	p.logInvalidIntents("register", handle, fd, wantRead, wantWrite)

	s.mu.Lock()
	s.events = applyIntent(baseEvents, EventReadable, wantRead)
	s.events = applyIntent(s.events, EventWritable, wantWrite)
	s.handler = handler
	s.data = data
	gen := s.gen
	events := s.events

	if notifyOnPollerDeath {
		s.deathElem = p.deathList.PushBack(s)
		s.deathLinked = true
	}
	s.mu.Unlock()
	p.mu.Unlock()

	if err := p.backend.Arm(fd, events, encodePayload(handle, gen)); err != nil {
		p.metrics.observeArmingFailure()
		p.logger.Log(LogEntry{Level: LevelError, Category: "register", PoolID: p.id, Handle: handle, FD: fd, Gen: gen, Message: "kernel arm failed", Err: err})
		s.release(p)
		return -1, wrapArmingFailure("arm", fd, err)
	}

	p.logger.Log(LogEntry{Level: LevelDebug, Category: "register", PoolID: p.id, Handle: handle, FD: fd, Gen: gen, Message: "registered"})
	return handle, nil
}

// SelectOn updates the read/write interest mask for an existing
// registration. If a worker currently owns the slot's dispatch rights
// (in_handler > 0), the update is deferred to its next re-arm via Handled;
// otherwise the kernel is re-armed immediately with the unchanged
// generation.
func (p *Pool) SelectOn(handle int32, fd int, wantRead, wantWrite int) error {
	s, err := p.table.lookup(handle)
	if err != nil {
		return err
	}
	defer s.release(p)

	p.logInvalidIntents("select", handle, fd, wantRead, wantWrite)

	s.mu.Lock()
	if s.fd != int32(fd) {
		s.mu.Unlock()
		return ErrInvalidHandle
	}
	s.events = applyIntent(s.events, EventReadable, wantRead)
	s.events = applyIntent(s.events, EventWritable, wantWrite)
	busy := s.inHandler > 0
	events := s.events
	gen := s.gen
	s.mu.Unlock()

	if busy {
		return nil
	}
	if err := p.backend.Modify(fd, events, encodePayload(handle, gen)); err != nil {
		p.metrics.observeArmingFailure()
		return wrapArmingFailure("modify", fd, err)
	}
	return nil
}

// unregister is the shared implementation of Unregister/UnregisterClose.
// A negative handle is treated as a safe no-op, matching the shutdown-path
// contract in §4.3.
func (p *Pool) unregister(handle int32, fd int, doClose bool) error {
	if handle < 0 {
		return nil
	}

	s, err := p.table.lookup(handle)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.fd != int32(fd) {
		s.mu.Unlock()
		s.release(p)
		return ErrInvalidHandle
	}

	detachErr := p.backend.Detach(fd)

	s.doClose = doClose
	s.gen++
	s.mu.Unlock()

	p.mu.Lock()
	if s.deathLinked {
		p.deathList.Remove(s.deathElem)
		s.deathElem = nil
		s.deathLinked = false
	}
	p.mu.Unlock()

	// Two references drop: the one just acquired by lookup, and the one
	// held by the original registration.
	s.release(p)
	s.release(p)

	if detachErr != nil {
		p.logger.Log(LogEntry{Level: LevelWarn, Category: "unregister", PoolID: p.id, Handle: handle, FD: fd, Message: "kernel detach failed (slot reused safely via gen bump)", Err: detachErr})
	}
	return nil
}

// Unregister detaches fd from the kernel and invalidates handle. The slot
// becomes reclaimable once no worker still holds a dispatch-time reference.
func (p *Pool) Unregister(handle int32, fd int) error {
	return p.unregister(handle, fd, false)
}

// UnregisterClose is Unregister plus closing fd once the slot's last
// reference drops.
func (p *Pool) UnregisterClose(handle int32, fd int) error {
	return p.unregister(handle, fd, true)
}

// Handled must be called by the registrant after its handler returns from a
// normal (non poller-death) dispatch. It decrements in_handler and, unless
// the slot was unregistered in the meantime (detected via gen mismatch),
// re-arms the kernel with whatever events SelectOn may have set during
// handler execution.
func (p *Pool) Handled(handle int32, fd int, gen uint32) error {
	s, err := p.table.lookup(handle)
	if err != nil {
		return err
	}
	defer s.release(p)

	s.mu.Lock()
	s.inHandler--
	stale := gen != s.gen
	rearm := !stale && s.inHandler == 0
	events := s.events
	curGen := s.gen
	s.mu.Unlock()

	if !rearm {
		return nil
	}
	if err := p.backend.Modify(fd, events, encodePayload(handle, curGen)); err != nil {
		p.metrics.observeArmingFailure()
		return wrapArmingFailure("modify", fd, err)
	}
	return nil
}
