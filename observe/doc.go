// Package observe carries sidenav's telemetry: a zap-backed structured
// Logger, otel render spans and instruments, and the Middleware that wraps
// every sidebar render with all three.
//
// NewObserver turns the observe section of the config file into providers;
// exporters are picked by name from the exporters subpackage.
package observe
