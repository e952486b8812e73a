package auth

import (
	"slices"
	"time"
)

// Method indicates how a viewer was identified.
type Method string

const (
	MethodNone      Method = "none"
	MethodJWT       Method = "jwt"
	MethodCookie    Method = "cookie"
	MethodAnonymous Method = "anonymous"
)

// Identity describes the viewer of a page. Only Subject and Roles affect
// profile selection; the rest is carried for logging and diagnostics.
type Identity struct {
	// Subject is the viewer's unique id (the token "sub" claim by default).
	Subject string

	// Roles are sanitized role keys, matching how profile conditions store
	// them.
	Roles []string

	Method Method

	// Claims holds the raw token claims.
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether the identity carries role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// IsExpired reports whether the identity has expired at now.
func (id *Identity) IsExpired(now time.Time) bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return now.After(id.ExpiresAt)
}

// IsAnonymous reports whether the identity represents a logged-out viewer.
func (id *Identity) IsAnonymous() bool {
	return id.Method == MethodAnonymous || id.Subject == ""
}

// AnonymousIdentity returns the identity of a logged-out viewer.
func AnonymousIdentity() *Identity {
	return &Identity{
		Method: MethodAnonymous,
		Claims: map[string]any{},
	}
}
