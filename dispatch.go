package eventpool

// routeEvent implements the per-event validation and handler invocation of
// the dispatch loop (§4.4): decode the payload, validate the slot under its
// lock (freed / stale generation / already-busy all drop silently), snapshot
// what's needed to call the handler, then fire outside the lock.
func (p *Pool) routeEvent(ev Event) {
	handle, gen := decodePayload(ev.Data)

	s, err := p.table.lookup(handle)
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.fd == unusedFD || gen != s.gen {
		s.mu.Unlock()
		s.release(p)
		p.metrics.observeDispatch(outcomeStale)
		return
	}
	if s.inHandler > 0 {
		s.mu.Unlock()
		s.release(p)
		p.metrics.observeDispatch(outcomeBusy)
		return
	}

	handler := s.handler
	data := s.data
	fd := s.fd
	suppressed := s.handledError
	if !suppressed {
		s.handledError = ev.Mask&(EventError|EventHangup) != 0
		s.inHandler = 1
	}
	s.mu.Unlock()

	if suppressed {
		s.release(p)
		p.metrics.observeDispatch(outcomeSuppressed)
		return
	}

	pollIn := ev.Mask&EventReadable != 0
	pollOut := ev.Mask&EventWritable != 0
	pollErr := ev.Mask&(EventError|EventHangup) != 0

	if handler != nil {
		handler(int(fd), handle, gen, data, pollIn, pollOut, pollErr, false)
	}
	p.metrics.observeDispatch(outcomeHandled)
	s.release(p)
}
