// Package resilience guards sidebar rendering.
//
// A render that hangs or keeps failing should cost the page its sidebar,
// not the page itself. The Executor composes three guards:
//
//   - Bulkhead: caps concurrent fresh renders so a cold cache cannot
//     saturate the server.
//   - CircuitBreaker: after repeated failures, stops calling the renderer
//     for a while and fails fast with ErrCircuitOpen.
//   - Timeout: bounds each render with WithDeadline.
//
// Usage:
//
//	exec := resilience.NewExecutorFromConfig(resilience.DefaultConfig(), logger)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    html, err = renderer.Render(ctx, in)
//	    return err
//	})
package resilience
