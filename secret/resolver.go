package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RefPrefix starts a secret reference: secretref:<provider>:<ref>.
const RefPrefix = "secretref:"

// Resolver replaces secret references in configuration values.
// Environment expansion happens earlier, on the whole file.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver creates a resolver with the given providers.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: map[string]Provider{}}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// ErrEmptySecret is returned when a provider resolves to an empty value.
var ErrEmptySecret = errors.New("secret: empty value")

// Resolve replaces every secret reference in value. A value that is
// entirely one reference may contain spaces in the ref.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if name, ref, ok := ParseRef(value); ok {
		return r.resolveOne(ctx, name, ref)
	}

	matches := inlineRef.FindAllStringSubmatchIndex(value, -1)
	out := value
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		resolved, err := r.resolveOne(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + resolved + out[m[1]:]
	}
	return out, nil
}

// ResolveAll resolves each pointer in place, stopping at the first error.
func (r *Resolver) ResolveAll(ctx context.Context, fields map[string]*string) error {
	for name, p := range fields {
		if p == nil || *p == "" {
			continue
		}
		v, err := r.Resolve(ctx, *p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		*p = v
	}
	return nil
}

// ParseRef splits a value that is exactly one secret reference.
func ParseRef(value string) (provider, ref string, ok bool) {
	if !strings.HasPrefix(value, RefPrefix) {
		return "", "", false
	}
	provider, ref, found := strings.Cut(strings.TrimPrefix(value, RefPrefix), ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

var inlineRef = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

func (r *Resolver) resolveOne(ctx context.Context, name, ref string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("secret: provider %q is not registered", name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w from provider %q", ErrEmptySecret, name)
	}
	return v, nil
}
