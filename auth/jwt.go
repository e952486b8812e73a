package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/sidenav/internal/coerce"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected iss claim. Empty skips the check.
	Issuer string

	// Audience is the expected aud claim. Empty skips the check.
	Audience string

	// HeaderName is the header carrying the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix precedes the token in the header.
	// Default: "Bearer "
	TokenPrefix string

	// CookieName names a session cookie holding the token. The header wins
	// when both are present.
	CookieName string

	// SubjectClaim holds the viewer id.
	// Default: "sub"
	SubjectClaim string

	// RolesClaim holds the viewer roles as a list or a comma-separated string.
	// Default: "roles"
	RolesClaim string

	// Algorithms restricts accepted signing methods.
	// Default: the HS, RS and ES families
	Algorithms []string

	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration

	// Now overrides the clock used for validation.
	Now func() time.Time
}

var defaultAlgorithms = []string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

// KeyProvider returns the verification key for a key id.
type KeyProvider interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider serves one HMAC secret regardless of key id.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(context.Context, string) (any, error) {
	if len(p.key) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.key, nil
}

// JWTAuthenticator identifies viewers from signed tokens.
type JWTAuthenticator struct {
	config JWTConfig
	keys   KeyProvider
	parser *jwt.Parser
}

// NewJWTAuthenticator creates a JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keys KeyProvider) *JWTAuthenticator {
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	if config.SubjectClaim == "" {
		config.SubjectClaim = "sub"
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}
	if len(config.Algorithms) == 0 {
		config.Algorithms = defaultAlgorithms
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(config.Algorithms)}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	if config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(config.Leeway))
	}
	if config.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(config.Now))
	}

	return &JWTAuthenticator{config: config, keys: keys, parser: jwt.NewParser(opts...)}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string { return "jwt" }

// Supports reports whether the request carries a bearer header or the
// configured session cookie.
func (a *JWTAuthenticator) Supports(_ context.Context, req *Request) bool {
	token, _ := a.token(req)
	return token != ""
}

func (a *JWTAuthenticator) token(req *Request) (string, Method) {
	header := req.Header(a.config.HeaderName)
	if strings.HasPrefix(header, a.config.TokenPrefix) {
		if t := strings.TrimSpace(strings.TrimPrefix(header, a.config.TokenPrefix)); t != "" {
			return t, MethodJWT
		}
	}
	if c := strings.TrimSpace(req.Cookie(a.config.CookieName)); c != "" {
		return c, MethodCookie
	}
	return "", MethodNone
}

// Authenticate validates the token and builds the identity. Key lookups that
// fail for reasons other than an unknown key id are internal errors.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	raw, method := a.token(req)
	if raw == "" {
		return Failure(ErrMissingCredentials, a.Name()), nil
	}
	if a.keys == nil {
		return nil, ErrNoKeySource
	}

	var keyErr error
	token, err := a.parser.Parse(raw, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, err := a.keys.GetKey(ctx, kid)
		keyErr = err
		return key, err
	})
	if err != nil {
		switch {
		case keyErr != nil && !errors.Is(keyErr, ErrKeyNotFound):
			return nil, fmt.Errorf("auth: signing key: %w", keyErr)
		case errors.Is(err, jwt.ErrTokenExpired):
			return Failure(ErrTokenExpired, a.Name()), nil
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Failure(ErrTokenMalformed, a.Name()), nil
		case keyErr != nil:
			return Failure(ErrKeyNotFound, a.Name()), nil
		default:
			return Failure(fmt.Errorf("%w: %w", ErrInvalidCredentials, err), a.Name()), nil
		}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Failure(ErrInvalidCredentials, a.Name()), nil
	}
	id := a.identity(claims, method)
	if id.Subject == "" {
		return Failure(ErrInvalidCredentials, a.Name()), nil
	}
	return Success(id, a.Name()), nil
}

func (a *JWTAuthenticator) identity(claims jwt.MapClaims, method Method) *Identity {
	id := &Identity{Method: method, Claims: make(map[string]any, len(claims))}
	for k, v := range claims {
		id.Claims[k] = v
	}
	id.Subject, _ = coerce.String(claims[a.config.SubjectClaim])

	var roles []string
	for _, r := range coerce.Strings(claims[a.config.RolesClaim]) {
		if k := coerce.Key(r); k != "" {
			roles = append(roles, k)
		}
	}
	id.Roles = coerce.SortedSet(roles)

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
