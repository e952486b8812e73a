package resilience

import "errors"

// Sentinel errors returned instead of running the guarded operation.
var (
	ErrCircuitOpen  = errors.New("resilience: circuit breaker is open")
	ErrBulkheadFull = errors.New("resilience: all render slots busy")
	ErrTimeout      = errors.New("resilience: operation timed out")
)
