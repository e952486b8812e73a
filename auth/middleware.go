package auth

import (
	"context"
	"net/http"

	"github.com/jonwraymond/sidenav/observe"
)

// Identify authenticates r and returns a context carrying the outcome:
//   - no authenticator, no credentials, or rejected credentials attach the
//     anonymous identity;
//   - a successful authentication attaches the viewer's identity;
//   - an internal error is recorded with WithFailure and no identity is
//     attached.
func Identify(ctx context.Context, a Authenticator, r *http.Request, logger observe.Logger) context.Context {
	if a == nil {
		return WithIdentity(ctx, AnonymousIdentity())
	}
	if logger == nil {
		logger = observe.NopLogger()
	}

	req := RequestFromHTTP(r)
	if !a.Supports(ctx, req) {
		return WithIdentity(ctx, AnonymousIdentity())
	}
	res, err := a.Authenticate(ctx, req)
	if err != nil {
		logger.Warn(ctx, "viewer authentication unavailable", observe.F("error", err))
		return WithFailure(ctx, err)
	}
	if !res.Authenticated {
		logger.Debug(ctx, "viewer credentials rejected",
			observe.F("authenticator", res.Authenticator), observe.F("error", res.Error))
		return WithIdentity(ctx, AnonymousIdentity())
	}
	return WithIdentity(ctx, res.Identity)
}

// Middleware attaches the viewer identity to each request context.
func Middleware(a Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := Identify(r.Context(), a, r, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
