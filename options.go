package eventpool

import "github.com/prometheus/client_golang/prometheus"

// poolOptions holds configuration resolved from Option values passed to New.
type poolOptions struct {
	logger     Logger
	metricsReg prometheus.Registerer
	metricsNS  string
	maxThreads int
	sizeHint   int
}

// Option configures a Pool instance.
type Option interface {
	apply(*poolOptions) error
}

type optionFunc func(*poolOptions) error

func (f optionFunc) apply(o *poolOptions) error { return f(o) }

// WithLogger sets the structured logger a Pool reports registration,
// dispatch, and worker-lifecycle events to. Defaults to the package-level
// logger set by SetStructuredLogger, or a no-op logger if none is set.
func WithLogger(logger Logger) Option {
	return optionFunc(func(o *poolOptions) error {
		o.logger = logger
		return nil
	})
}

// WithMetrics enables Prometheus metrics collection, registering a
// PoolMetrics instance under the given namespace into reg. See metrics.go.
func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return optionFunc(func(o *poolOptions) error {
		o.metricsReg = reg
		o.metricsNS = namespace
		return nil
	})
}

// WithMaxThreads overrides MaxThreads for this Pool, clamped to
// [1, MaxThreads]. Primarily useful for tests that want a small, easily
// exhausted worker roster.
func WithMaxThreads(n int) Option {
	return optionFunc(func(o *poolOptions) error {
		o.maxThreads = n
		return nil
	})
}

// WithSizeHint sets the sizing hint passed to the kernel readiness
// facility's creation call (§4.2 of the design doc). Most backends ignore
// it beyond an initial allocation hint; it exists for parity with the
// kernel facility's own constructor contract.
func WithSizeHint(n int) Option {
	return optionFunc(func(o *poolOptions) error {
		o.sizeHint = n
		return nil
	})
}

// resolvePoolOptions applies Option values to a poolOptions, skipping nils.
func resolvePoolOptions(opts []Option) (*poolOptions, error) {
	cfg := &poolOptions{
		logger:     getGlobalLogger(),
		maxThreads: MaxThreads,
		sizeHint:   DefaultSizeHint,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.maxThreads < 1 {
		cfg.maxThreads = 1
	}
	if cfg.maxThreads > MaxThreads {
		cfg.maxThreads = MaxThreads
	}
	return cfg, nil
}
