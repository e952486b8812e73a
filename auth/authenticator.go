package auth

import (
	"context"
	"net/http"
)

// Authenticator identifies the viewer of a request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines.
// - Errors: Authenticate returns (nil, error) for internal errors such as an
// unreachable key endpoint; returns (Result, nil) for credential failures.
type Authenticator interface {
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(ctx context.Context, req *Request) bool

	Authenticate(ctx context.Context, req *Request) (*Result, error)
}

// Request holds the credential-bearing parts of an HTTP request.
type Request struct {
	Headers http.Header
	Cookies map[string]string
}

// RequestFromHTTP extracts headers and cookies from r.
func RequestFromHTTP(r *http.Request) *Request {
	req := &Request{Headers: r.Header, Cookies: map[string]string{}}
	for _, c := range r.Cookies() {
		if _, seen := req.Cookies[c.Name]; !seen {
			req.Cookies[c.Name] = c.Value
		}
	}
	return req
}

// Header returns the first value for key.
func (r *Request) Header(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// Cookie returns the value of the named cookie.
func (r *Request) Cookie(name string) string {
	if r.Cookies == nil || name == "" {
		return ""
	}
	return r.Cookies[name]
}

// Result is the outcome of an authentication attempt.
type Result struct {
	Authenticated bool

	// Identity is set only when Authenticated is true.
	Identity *Identity

	// Error is set only when Authenticated is false.
	Error error

	// Authenticator names the authenticator that produced the result.
	Authenticator string
}

// Success creates a successful result.
func Success(identity *Identity, authenticator string) *Result {
	return &Result{Authenticated: true, Identity: identity, Authenticator: authenticator}
}

// Failure creates a failed result.
func Failure(err error, authenticator string) *Result {
	return &Result{Error: err, Authenticator: authenticator}
}

// AuthenticatorFunc adapts plain functions to Authenticator.
type AuthenticatorFunc struct {
	name     string
	supports func(ctx context.Context, req *Request) bool
	auth     func(ctx context.Context, req *Request) (*Result, error)
}

// NewAuthenticatorFunc creates an AuthenticatorFunc.
func NewAuthenticatorFunc(
	name string,
	supports func(ctx context.Context, req *Request) bool,
	auth func(ctx context.Context, req *Request) (*Result, error),
) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, supports: supports, auth: auth}
}

// Name returns the authenticator name.
func (f *AuthenticatorFunc) Name() string { return f.name }

// Supports calls the supports function.
func (f *AuthenticatorFunc) Supports(ctx context.Context, req *Request) bool {
	return f.supports(ctx, req)
}

// Authenticate calls the auth function.
func (f *AuthenticatorFunc) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	return f.auth(ctx, req)
}

// Chain tries authenticators in order and returns the first success.
// Authenticators that do not support the request are skipped; internal
// errors stop the chain.
type Chain []Authenticator

// Name returns "chain".
func (c Chain) Name() string { return "chain" }

// Supports reports whether any member supports the request.
func (c Chain) Supports(ctx context.Context, req *Request) bool {
	for _, a := range c {
		if a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate runs the chain. Without any supporting member the result is
// a failure with ErrMissingCredentials.
func (c Chain) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	var last *Result
	for _, a := range c {
		if !a.Supports(ctx, req) {
			continue
		}
		res, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.Authenticated {
			return res, nil
		}
		last = res
	}
	if last != nil {
		return last, nil
	}
	return Failure(ErrMissingCredentials, c.Name()), nil
}

var (
	_ Authenticator = (*AuthenticatorFunc)(nil)
	_ Authenticator = Chain(nil)
)
