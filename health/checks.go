package health

import (
	"context"
	"fmt"
	"runtime"

	"github.com/jonwraymond/sidenav/cache"
	"github.com/jonwraymond/sidenav/resilience"
)

// Pinger is anything with a liveness probe, such as a kvstore backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports unhealthy when the key-value backend cannot be
// reached. Without it no profile can be loaded.
type StoreChecker struct {
	name string
	p    Pinger
}

// NewStoreChecker creates a store checker.
func NewStoreChecker(name string, p Pinger) *StoreChecker {
	return &StoreChecker{name: name, p: p}
}

// Name returns the checker name.
func (c *StoreChecker) Name() string { return c.name }

// Check pings the store.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if err := c.p.Ping(ctx); err != nil {
		return Unhealthy("store unreachable", err)
	}
	return Healthy("store reachable")
}

// StatsSource exposes fragment cache counters.
type StatsSource interface {
	Stats(ctx context.Context) cache.Metrics
}

// CacheChecker reports the fragment cache hit ratio. A ratio below
// MinHitRatio once MinLookups lookups have been counted is degraded.
type CacheChecker struct {
	src         StatsSource
	MinHitRatio float64
	MinLookups  int64
}

// NewCacheChecker creates a cache checker with a 0.5 ratio floor after 100
// lookups.
func NewCacheChecker(src StatsSource) *CacheChecker {
	return &CacheChecker{src: src, MinHitRatio: 0.5, MinLookups: 100}
}

// Name returns "cache".
func (c *CacheChecker) Name() string { return "cache" }

// Check compares the hit ratio with the floor.
func (c *CacheChecker) Check(ctx context.Context) Result {
	m := c.src.Stats(ctx)
	ratio := m.HitRatio()
	details := map[string]any{
		"hits":      m.Hits,
		"misses":    m.Misses,
		"sets":      m.Sets,
		"clears":    m.Clears,
		"purged":    m.Purged,
		"hit_ratio": ratio,
	}
	if m.Hits+m.Misses >= c.MinLookups && ratio < c.MinHitRatio {
		return Degraded(fmt.Sprintf("cache hit ratio low: %.2f", ratio)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("cache hit ratio %.2f", ratio)).WithDetails(details)
}

// BreakerChecker reports degraded while the render circuit breaker is not
// closed: pages are served without sidebars.
type BreakerChecker struct {
	cb *resilience.CircuitBreaker
}

// NewBreakerChecker creates a breaker checker.
func NewBreakerChecker(cb *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{cb: cb}
}

// Name returns "renderer".
func (c *BreakerChecker) Name() string { return "renderer" }

// Check inspects the breaker state.
func (c *BreakerChecker) Check(context.Context) Result {
	s := c.cb.Stats()
	details := map[string]any{"state": s.StateName, "failures": s.Failures, "trips": s.Trips}
	if s.State != resilience.StateClosed {
		return Degraded("render circuit " + s.StateName).WithDetails(details)
	}
	return Healthy("render circuit closed").WithDetails(details)
}

// MemoryChecker compares heap usage with a configured limit.
type MemoryChecker struct {
	// Limit is the heap budget in bytes. Zero reports usage without judging.
	Limit uint64
	// Warn and Critical are fractions of Limit.
	Warn, Critical float64
}

// NewMemoryChecker creates a memory checker with 80%/95% thresholds.
func NewMemoryChecker(limit uint64) *MemoryChecker {
	return &MemoryChecker{Limit: limit, Warn: 0.8, Critical: 0.95}
}

// Name returns "memory".
func (m *MemoryChecker) Name() string { return "memory" }

// Check reads runtime memory stats.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	details := map[string]any{
		"heap_alloc": stats.HeapAlloc,
		"heap_sys":   stats.HeapSys,
		"num_gc":     stats.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}
	if m.Limit == 0 {
		return Healthy("no memory limit configured").WithDetails(details)
	}

	ratio := float64(stats.HeapAlloc) / float64(m.Limit)
	details["usage_percent"] = ratio * 100
	switch {
	case ratio >= m.Critical:
		return Unhealthy(fmt.Sprintf("heap usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.Warn:
		return Degraded(fmt.Sprintf("heap usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("heap usage %.1f%%", ratio*100)).WithDetails(details)
	}
}

var (
	_ Checker = (*StoreChecker)(nil)
	_ Checker = (*CacheChecker)(nil)
	_ Checker = (*BreakerChecker)(nil)
	_ Checker = (*MemoryChecker)(nil)
)
