package eventpool

import "container/list"

// Dispatch starts the worker pool with the given number of workers, clamped
// to [1, the pool's configured max threads]. Worker 1 is joinable: Dispatch
// blocks until it exits via ReconfigureThreads shrinking it away. A failed
// kernel wait is logged and the worker keeps looping; it does not make the
// worker exit. All other workers are detached
// goroutines. Calling Dispatch a second time on the same pool returns
// ErrAlreadyDispatched.
func (p *Pool) Dispatch(requested int) error {
	p.mu.Lock()
	if p.dispatchStarted {
		p.mu.Unlock()
		return ErrAlreadyDispatched
	}
	p.dispatchStarted = true

	n := requested
	if n < 1 {
		n = 1
	}
	if n > p.maxThreads {
		n = p.maxThreads
	}
	p.eventThreadCount = n
	var worker1Done chan struct{}
	for i := 1; i <= n; i++ {
		done := p.spawnWorkerLocked(i)
		if i == 1 {
			worker1Done = done
		}
	}
	p.mu.Unlock()

	<-worker1Done
	return nil
}

// ReconfigureThreads grows or shrinks the live worker count. Growing spawns
// detached workers at any roster index that is currently empty; shrinking
// simply lowers the target and lets workers above it retire cooperatively
// at the top of their loop (§4.5). n is clamped to [1, max threads], or to
// [0, max threads] once Destroy has been called. Must be called after
// Dispatch.
func (p *Pool) ReconfigureThreads(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.dispatchStarted {
		return ErrDispatchNotStarted
	}
	floor := 1
	if p.destroy {
		floor = 0
	}
	if n < floor {
		n = floor
	}
	if n > p.maxThreads {
		n = p.maxThreads
	}

	if n > p.eventThreadCount {
		for i := p.eventThreadCount + 1; i <= n; i++ {
			if p.roster[i] == 0 {
				p.spawnWorkerLocked(i)
			}
		}
	}
	p.eventThreadCount = n
	return nil
}

// spawnWorkerLocked must be called with p.mu held. For idx==1 it allocates a
// fresh done channel that only this spawned goroutine will ever close,
// since worker 1 may be retired and respawned many times over a pool's
// lifetime (Dispatch followed by repeated ReconfigureThreads) and a single
// long-lived channel would be closed more than once.
func (p *Pool) spawnWorkerLocked(idx int) chan struct{} {
	token := p.nextRosterToken()
	p.roster[idx] = token
	p.activeThreadCount++
	p.metrics.setWorkersActive(p.activeThreadCount)
	var done chan struct{}
	if idx == 1 {
		done = make(chan struct{})
	}
	go p.runWorker(idx, token, done)
	return done
}

// runWorker is the body of one dispatch worker: wait for exactly one event
// with no timeout, route it, and loop — checking at the top of every
// iteration whether its 1-based index now exceeds the desired worker
// count, in which case it retires. done is non-nil only for idx==1 and is
// this spawn's own joinability channel (see spawnWorkerLocked).
func (p *Pool) runWorker(idx int, token uint64, done chan struct{}) {
	for {
		p.mu.Lock()
		shouldRetire := idx > p.eventThreadCount
		p.mu.Unlock()
		if shouldRetire {
			p.retire(idx, token)
			if idx == 1 {
				close(done)
			}
			return
		}

		var buf [1]Event
		n, err := p.backend.Wait(buf[:], -1)
		if err != nil {
			p.logger.Log(LogEntry{Level: LevelError, Category: "worker", PoolID: p.id, WorkerIdx: idx, Message: "kernel wait failed", Err: err})
			continue
		}
		if n == 0 {
			continue
		}
		p.routeEvent(buf[0])
	}
}

// retire implements §4.5's retirement protocol: serialize against any
// concurrently-retiring worker via the death-slicing condition variable,
// clear the roster entry, bump poller_gen, reference and splice off every
// slot currently enrolled for poller-death notification, release the pool
// mutex, invoke each handler with poller_died=true, then reacquire the
// mutex to drop the references taken above (deallocating any slot that was
// already unregistered) before signalling waiters.
func (p *Pool) retire(idx int, token uint64) {
	p.mu.Lock()
	for p.deathSliced {
		p.cond.Wait()
	}

	if p.roster[idx] == token {
		p.roster[idx] = 0
	}
	p.activeThreadCount--
	p.metrics.setWorkersActive(p.activeThreadCount)
	p.pollerGen++
	gen := p.pollerGen

	local := list.New()
	for e := p.deathList.Front(); e != nil; {
		next := e.Next()
		s := e.Value.(*slot)
		s.ref.Add(1)
		p.deathList.Remove(e)
		elem := local.PushBack(s)
		s.deathElem = elem
		e = next
	}
	p.deathSliced = true
	p.mu.Unlock()

	for e := local.Front(); e != nil; e = e.Next() {
		s := e.Value.(*slot)
		s.mu.Lock()
		handler := s.handler
		data := s.data
		fd := s.fd
		s.mu.Unlock()
		if handler != nil {
			handler(int(fd), s.idx, gen, data, false, false, false, true)
			p.metrics.observePollerDeath()
		}
	}

	var toClose []int
	p.mu.Lock()
	for e := local.Front(); e != nil; e = e.Next() {
		s := e.Value.(*slot)
		fd, doClose, deallocated := s.releaseLocked(p)
		if doClose {
			toClose = append(toClose, fd)
		}
		if !deallocated {
			// Still registered: splice back onto the shared poller-death
			// list so the next retirement notifies it again.
			s.deathElem = p.deathList.PushBack(s)
			s.deathLinked = true
		}
	}
	p.deathSliced = false
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, fd := range toClose {
		_ = closeFD(fd)
	}

	p.logger.Log(LogEntry{Level: LevelInfo, Category: "worker", PoolID: p.id, WorkerIdx: idx, Gen: gen, Message: "worker retired"})
}
