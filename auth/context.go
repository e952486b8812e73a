package auth

import "context"

type contextKey int

const (
	identityKey contextKey = iota
	failureKey
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity attached to ctx, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// SubjectFromContext returns the subject of the attached identity, or "".
func SubjectFromContext(ctx context.Context) string {
	id := IdentityFromContext(ctx)
	if id == nil {
		return ""
	}
	return id.Subject
}

// WithFailure records that identifying the viewer failed internally.
func WithFailure(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, failureKey, err)
}

// FailureFromContext returns the error recorded by WithFailure, or nil.
func FailureFromContext(ctx context.Context) error {
	err, _ := ctx.Value(failureKey).(error)
	return err
}
