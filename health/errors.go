package health

import "errors"

var (
	// ErrCheckFailed marks a check whose measurement crossed its hard limit.
	ErrCheckFailed = errors.New("health: check failed")
	// ErrCheckTimeout is set on results of checkers that overran the
	// aggregator timeout.
	ErrCheckTimeout = errors.New("health: check timed out")
	// ErrCheckerNotFound is returned by Aggregator.Check for unknown names.
	ErrCheckerNotFound = errors.New("health: no such checker")
)
