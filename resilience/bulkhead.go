package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig bounds concurrent renders.
type BulkheadConfig struct {
	// MaxConcurrent is the number of render slots. Default 10.
	MaxConcurrent int
	// MaxWait is how long a caller queues for a slot. Zero fails at once.
	MaxWait time.Duration
}

// Bulkhead caps the number of renders in flight.
type Bulkhead struct {
	sem     *semaphore.Weighted
	size    int
	maxWait time.Duration

	mu       sync.Mutex
	active   int
	peak     int
	rejected int64
}

// NewBulkhead creates a bulkhead with cfg.MaxConcurrent slots.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	size := cfg.MaxConcurrent
	if size <= 0 {
		size = 10
	}
	return &Bulkhead{sem: semaphore.NewWeighted(int64(size)), size: size, maxWait: cfg.MaxWait}
}

// Acquire takes a slot, queueing up to MaxWait. It returns ErrBulkheadFull
// when none frees up in time, or ctx's error if ctx ends first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		b.track(1)
		return nil
	}
	if b.maxWait <= 0 {
		b.track(0)
		return ErrBulkheadFull
	}

	wctx, cancel := context.WithTimeout(ctx, b.maxWait)
	defer cancel()
	if err := b.sem.Acquire(wctx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			b.track(0)
			return ErrBulkheadFull
		}
		return err
	}
	b.track(1)
	return nil
}

// Release frees a slot taken by Acquire. Extra calls are ignored.
func (b *Bulkhead) Release() {
	b.mu.Lock()
	if b.active == 0 {
		b.mu.Unlock()
		return
	}
	b.active--
	b.mu.Unlock()
	b.sem.Release(1)
}

// Execute runs op inside a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

// track records an admitted (n=1) or rejected (n=0) caller.
func (b *Bulkhead) track(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n == 0 {
		b.rejected++
		return
	}
	b.active += n
	b.peak = max(b.peak, b.active)
}

// BulkheadStats is a snapshot of slot usage.
type BulkheadStats struct {
	Active   int   `json:"active"`
	Peak     int   `json:"peak"`
	Capacity int   `json:"capacity"`
	Rejected int64 `json:"rejected"`
}

// Stats returns a snapshot of slot usage.
func (b *Bulkhead) Stats() BulkheadStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadStats{Active: b.active, Peak: b.peak, Capacity: b.size, Rejected: b.rejected}
}
