// Package health reports whether the sidebar service can do its job.
//
// Checkers cover the key-value store backing profiles and the fragment
// cache, the cache hit ratio, the render circuit breaker and heap usage.
// An Aggregator runs them in parallel under one deadline, and the gin
// handlers expose the results as liveness, readiness and detailed probes:
//
//	agg := health.NewAggregator(0)
//	agg.Register(health.NewStoreChecker("store", kv))
//	agg.Register(health.NewCacheChecker(store))
//	health.Register(router, agg)
//
// A degraded service still serves pages; only unhealthy checks fail
// readiness.
package health
