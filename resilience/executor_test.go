package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWithDeadline(t *testing.T) {
	ctx := context.Background()
	if err := WithDeadline(ctx, time.Second, succeed); err != nil {
		t.Errorf("fast op error = %v", err)
	}
	if err := WithDeadline(ctx, time.Second, fail); !errors.Is(err, errRender) {
		t.Errorf("failing op error = %v", err)
	}

	err := WithDeadline(ctx, 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("slow op error = %v, want ErrTimeout", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = WithDeadline(cancelled, time.Second, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled parent error = %v, want context.Canceled", err)
	}
}

func TestBulkhead(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	ctx := context.Background()

	if err := b.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Acquire(ctx); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("third Acquire() error = %v, want ErrBulkheadFull", err)
	}
	b.Release()
	if err := b.Execute(ctx, succeed); err != nil {
		t.Errorf("Execute() after release error = %v", err)
	}
	b.Release()

	s := b.Stats()
	if s.Active != 0 || s.Peak != 2 || s.Capacity != 2 || s.Rejected != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	ctx := context.Background()
	_ = b.Acquire(ctx)

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Release()
	}()
	if err := b.Acquire(ctx); err != nil {
		t.Errorf("Acquire() should wait for the released slot: %v", err)
	}
}

func TestExecutor_Order(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	e := NewExecutor(
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 1})),
		WithCircuitBreaker(cb),
		WithTimeout(10*time.Millisecond),
	)
	ctx := context.Background()

	err := e.Execute(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("timeout should count as a breaker failure, state = %v", cb.State())
	}
	if err := e.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}

	s := e.Stats()
	if s.Breaker == nil || s.Breaker.StateName != "open" || s.Bulkhead == nil || s.Bulkhead.Active != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestCall(t *testing.T) {
	ctx := context.Background()
	e := NewExecutor(WithTimeout(20 * time.Millisecond))

	got, err := Call(ctx, e, func(context.Context) (string, error) { return "<nav/>", nil })
	if err != nil || got != "<nav/>" {
		t.Errorf("Call() = %q, %v", got, err)
	}
	got, err = Call(ctx, nil, func(context.Context) (string, error) { return "direct", nil })
	if err != nil || got != "direct" {
		t.Errorf("Call(nil) = %q, %v", got, err)
	}
	if _, err := Call(ctx, e, func(context.Context) (int, error) { return 1, errRender }); !errors.Is(err, errRender) {
		t.Errorf("Call() error = %v, want errRender", err)
	}

	release := make(chan struct{})
	finished := make(chan struct{})
	got, err = Call(ctx, e, func(context.Context) (string, error) {
		defer close(finished)
		<-release
		return "late", nil
	})
	if !errors.Is(err, ErrTimeout) || got != "" {
		t.Errorf("Call() = %q, %v, want ErrTimeout", got, err)
	}
	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("late op blocked delivering its value")
	}
}

func TestExecutor_BulkheadRejectionSkipsBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	e := NewExecutor(WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 1})), WithCircuitBreaker(cb))
	ctx := context.Background()

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		_ = e.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	if err := e.Execute(ctx, succeed); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Execute() error = %v, want ErrBulkheadFull", err)
	}
	close(release)
	wg.Wait()
	if cb.State() != StateClosed {
		t.Errorf("rejection counted against the breaker")
	}
}

func TestNewExecutorFromConfig(t *testing.T) {
	e := NewExecutorFromConfig(Config{}, nil)
	if e.Breaker() != nil || e.bulkhead != nil || e.timeout != 0 {
		t.Errorf("zero config should build a pass-through executor: %+v", e)
	}

	var calls atomic.Int32
	e = NewExecutorFromConfig(Config{Timeout: time.Second, MaxFailures: 2, MaxConcurrent: 4}, nil)
	for i := 0; i < 3; i++ {
		_ = e.Execute(context.Background(), func(context.Context) error {
			calls.Add(1)
			return errRender
		})
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 before the breaker opens", calls.Load())
	}
	if s := e.Stats(); s.Bulkhead == nil || s.Bulkhead.Capacity != 4 {
		t.Errorf("Stats() = %+v", s)
	}
	if d := DefaultConfig(); d.Timeout != DefaultTimeout || d.MaxFailures != 5 {
		t.Errorf("DefaultConfig() = %+v", d)
	}
}
