package eventpool

import (
	"container/list"
	"sync"
	"sync/atomic"
)

const (
	// MaxThreads bounds the worker roster, per §6's "small, e.g. 32".
	MaxThreads = 32

	// DefaultSizeHint is the default hint passed to the kernel readiness
	// facility's creation call when WithSizeHint is not supplied.
	DefaultSizeHint = 256
)

var poolIDCounter atomic.Uint64

// Pool is the core multi-threaded readiness-event demultiplexer: it owns a
// kernel readiness handle, a two-level slot table, a worker roster, and a
// poller-death notification registry. A Pool is created with New and must
// be run via Dispatch before any registered FD sees its handler invoked.
//
// All exported methods are safe for concurrent use.
type Pool struct {
	id uint64

	backend Backend
	table   slotTable

	mu   sync.Mutex
	cond *sync.Cond

	// roster[i] is non-zero while worker i (1-based) is alive; workers
	// clear their own entry on exit. roster[0] is unused.
	roster            [MaxThreads + 1]uint64
	rosterTok         uint64
	activeThreadCount int
	eventThreadCount  int
	maxThreads        int
	pollerGen         uint32
	destroy           bool

	deathList   *list.List
	deathSliced bool

	dispatchStarted bool

	logger  Logger
	metrics *PoolMetrics
}

// New constructs a Pool. The kernel readiness handle is created immediately;
// no workers are started until Dispatch is called.
func New(opts ...Option) (*Pool, error) {
	cfg, err := resolvePoolOptions(opts)
	if err != nil {
		return nil, err
	}

	backend, err := newBackend(cfg.sizeHint)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		id:         poolIDCounter.Add(1),
		backend:    backend,
		deathList:  list.New(),
		logger:     cfg.logger,
		maxThreads: cfg.maxThreads,
	}
	p.cond = sync.NewCond(&p.mu)
	if cfg.metricsReg != nil {
		p.metrics = newPoolMetrics(cfg.metricsReg, cfg.metricsNS)
	}

	p.logger.Log(LogEntry{
		Level:    LevelInfo,
		Category: "pool",
		PoolID:   p.id,
		Message:  "pool created",
	})
	return p, nil
}

// Destroy marks the pool as shutting down: subsequent Register calls fail
// with ErrPoolClosed, and ReconfigureThreads(0) is permitted to drain the
// last worker.
func (p *Pool) Destroy() {
	p.mu.Lock()
	p.destroy = true
	p.mu.Unlock()
	p.logger.Log(LogEntry{Level: LevelInfo, Category: "pool", PoolID: p.id, Message: "destroy requested"})
}

// Close releases the kernel readiness handle. Must not be called while any
// worker may still be waiting on it — call Destroy then
// ReconfigureThreads(0) first (§4.2).
func (p *Pool) Close() error {
	p.mu.Lock()
	active := p.activeThreadCount
	p.mu.Unlock()
	if active != 0 {
		return ErrWorkersStillActive
	}
	return p.backend.Close()
}

// ActiveThreadCount returns the number of currently-running workers.
func (p *Pool) ActiveThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeThreadCount
}

func (p *Pool) isDestroying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroy
}

func (p *Pool) nextRosterToken() uint64 {
	p.rosterTok++
	return p.rosterTok
}
