package resilience

import (
	"context"
	"time"

	"github.com/jonwraymond/sidenav/observe"
)

// Executor guards an operation with a bulkhead, a circuit breaker and a
// timeout, each optional.
type Executor struct {
	bulkhead *Bulkhead
	breaker  *CircuitBreaker
	timeout  time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. Without options it runs op directly.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

// WithBulkhead adds a concurrency limit.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds each call.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// Execute runs op. Order, outermost first: bulkhead, circuit breaker,
// timeout. Calls rejected by the bulkhead do not count against the breaker.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	if e.timeout > 0 {
		inner := run
		run = func(ctx context.Context) error { return WithDeadline(ctx, e.timeout, inner) }
	}
	if e.breaker != nil {
		inner := run
		run = func(ctx context.Context) error { return e.breaker.Execute(ctx, inner) }
	}
	if e.bulkhead != nil {
		inner := run
		run = func(ctx context.Context) error { return e.bulkhead.Execute(ctx, inner) }
	}
	return run(ctx)
}

// Call runs op through e and returns its value. A value op produces after e
// has given up on it is dropped. A nil e runs op directly.
func Call[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error)) (T, error) {
	if e == nil {
		return op(ctx)
	}
	res := make(chan T, 1)
	err := e.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		res <- v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-res, nil
}

// Stats reports the state of the configured guards.
type Stats struct {
	Breaker  *CircuitBreakerStats `json:"breaker,omitempty"`
	Bulkhead *BulkheadStats       `json:"bulkhead,omitempty"`
}

// Stats returns a snapshot of the configured guards.
func (e *Executor) Stats() Stats {
	var s Stats
	if e.breaker != nil {
		b := e.breaker.Stats()
		s.Breaker = &b
	}
	if e.bulkhead != nil {
		b := e.bulkhead.Stats()
		s.Bulkhead = &b
	}
	return s
}

// Breaker returns the configured circuit breaker, or nil.
func (e *Executor) Breaker() *CircuitBreaker { return e.breaker }

// Config is the file-level render guard configuration.
type Config struct {
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxConcurrent int           `yaml:"max_concurrent" validate:"gte=0"`
	MaxWait       time.Duration `yaml:"max_wait" validate:"gte=0"`
	MaxFailures   int           `yaml:"max_failures" validate:"gte=0"`
	ResetTimeout  time.Duration `yaml:"reset_timeout" validate:"gte=0"`
}

// DefaultConfig returns the guard settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		MaxFailures:  5,
		ResetTimeout: 30 * time.Second,
	}
}

// NewExecutorFromConfig builds an executor from cfg. A zero MaxConcurrent
// disables the bulkhead and a zero MaxFailures disables the breaker.
// Breaker transitions are logged.
func NewExecutorFromConfig(cfg Config, logger observe.Logger) *Executor {
	if logger == nil {
		logger = observe.NopLogger()
	}
	var opts []ExecutorOption
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	if cfg.MaxFailures > 0 {
		opts = append(opts, WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{
			MaxFailures:  cfg.MaxFailures,
			ResetTimeout: cfg.ResetTimeout,
			OnStateChange: func(from, to State) {
				logger.Warn(context.Background(), "render circuit breaker state changed",
					observe.F("from", from.String()), observe.F("to", to.String()))
			},
		})))
	}
	if cfg.MaxConcurrent > 0 {
		opts = append(opts, WithBulkhead(NewBulkhead(BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.MaxWait,
		})))
	}
	return NewExecutor(opts...)
}
