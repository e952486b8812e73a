package health

import (
	"context"
	"time"
)

// Status is the health of a component, ordered healthy < degraded < unhealthy.
type Status string

const (
	StatusHealthy Status = "healthy"
	// StatusDegraded means pages are still served but sidebars may be
	// missing or slow.
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	}
	return 2
}

// Worse reports whether s is more severe than o. Unrecognised values count
// as unhealthy.
func (s Status) Worse(o Status) bool { return s.rank() > o.rank() }

// Result is the outcome of one check. Duration and Timestamp are filled in
// by the Aggregator when the checker leaves them zero.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

func result(s Status, msg string, err error) Result {
	return Result{Status: s, Message: msg, Error: err, Timestamp: time.Now()}
}

// Healthy reports a working component.
func Healthy(msg string) Result { return result(StatusHealthy, msg, nil) }

// Degraded reports a component that works with reduced quality.
func Degraded(msg string) Result { return result(StatusDegraded, msg, nil) }

// Unhealthy reports a failed component and its cause.
func Unhealthy(msg string, err error) Result { return result(StatusUnhealthy, msg, err) }

// WithDetails returns r carrying details.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker reports the health of one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type funcChecker struct {
	name string
	fn   func(context.Context) Result
}

// Func builds a Checker named name from fn.
func Func(name string, fn func(context.Context) Result) Checker {
	return funcChecker{name: name, fn: fn}
}

func (f funcChecker) Name() string { return f.name }

func (f funcChecker) Check(ctx context.Context) Result { return f.fn(ctx) }
