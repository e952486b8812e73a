package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func bearer(token string) *Request {
	return &Request{Headers: http.Header{"Authorization": {"Bearer " + token}}}
}

func TestJWTAuthenticator_Supports(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{CookieName: "sn_session"}, NewStaticKeyProvider(testSecret))

	tests := []struct {
		name string
		req  *Request
		want bool
	}{
		{"nothing", &Request{}, false},
		{"bearer", &Request{Headers: http.Header{"Authorization": {"Bearer abc"}}}, true},
		{"empty bearer", &Request{Headers: http.Header{"Authorization": {"Bearer  "}}}, false},
		{"basic", &Request{Headers: http.Header{"Authorization": {"Basic abc"}}}, false},
		{"cookie", &Request{Cookies: map[string]string{"sn_session": "abc"}}, true},
		{"other cookie", &Request{Cookies: map[string]string{"other": "abc"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Supports(context.Background(), tt.req); got != tt.want {
				t.Errorf("Supports() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := NewJWTAuthenticator(JWTConfig{
		Issuer:     "https://id.example",
		Audience:   "sidenav",
		CookieName: "sn_session",
		Now:        func() time.Time { return now },
	}, NewStaticKeyProvider(testSecret))

	valid := jwt.MapClaims{
		"sub":   "u42",
		"iss":   "https://id.example",
		"aud":   "sidenav",
		"roles": []any{"Editor", "subscriber", "editor"},
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Add(-time.Minute).Unix(),
	}
	with := func(k string, v any) jwt.MapClaims {
		c := jwt.MapClaims{}
		for key, val := range valid {
			c[key] = val
		}
		if v == nil {
			delete(c, k)
		} else {
			c[k] = v
		}
		return c
	}

	t.Run("valid header token", func(t *testing.T) {
		res, err := a.Authenticate(context.Background(), bearer(signHS256(t, valid)))
		if err != nil || !res.Authenticated {
			t.Fatalf("Authenticate() = %+v, %v", res, err)
		}
		id := res.Identity
		if id.Subject != "u42" || id.Method != MethodJWT {
			t.Errorf("identity = %+v", id)
		}
		if len(id.Roles) != 2 || id.Roles[0] != "editor" || id.Roles[1] != "subscriber" {
			t.Errorf("Roles = %v, want [editor subscriber]", id.Roles)
		}
		if !id.ExpiresAt.Equal(now.Add(time.Hour)) || id.IsExpired(now) {
			t.Errorf("ExpiresAt = %v", id.ExpiresAt)
		}
	})

	t.Run("cookie token", func(t *testing.T) {
		req := &Request{Cookies: map[string]string{"sn_session": signHS256(t, with("roles", "author, editor"))}}
		res, err := a.Authenticate(context.Background(), req)
		if err != nil || !res.Authenticated {
			t.Fatalf("Authenticate() = %+v, %v", res, err)
		}
		if res.Identity.Method != MethodCookie || len(res.Identity.Roles) != 2 {
			t.Errorf("identity = %+v", res.Identity)
		}
	})

	failures := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", signHS256(t, with("exp", now.Add(-time.Hour).Unix())), ErrTokenExpired},
		{"wrong issuer", signHS256(t, with("iss", "https://evil.example")), ErrInvalidCredentials},
		{"wrong audience", signHS256(t, with("aud", "other")), ErrInvalidCredentials},
		{"missing subject", signHS256(t, with("sub", nil)), ErrInvalidCredentials},
		{"malformed", "not.a.jwt", ErrTokenMalformed},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Authenticate(context.Background(), bearer(tt.token))
			if err != nil {
				t.Fatalf("Authenticate() internal error = %v", err)
			}
			if res.Authenticated || !errors.Is(res.Error, tt.want) {
				t.Errorf("Authenticate() = %+v, want failure %v", res, tt.want)
			}
		})
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider([]byte("different")))
		res, err := other.Authenticate(context.Background(), bearer(signHS256(t, jwt.MapClaims{"sub": "u1"})))
		if err != nil || res.Authenticated {
			t.Errorf("Authenticate() = %+v, %v, want rejection", res, err)
		}
	})
}

func TestJWTAuthenticator_KeyErrors(t *testing.T) {
	token := signHS256(t, jwt.MapClaims{"sub": "u1"})
	down := errors.New("key service down")

	a := NewJWTAuthenticator(JWTConfig{}, keyFunc(func(context.Context, string) (any, error) { return nil, down }))
	if _, err := a.Authenticate(context.Background(), bearer(token)); !errors.Is(err, down) {
		t.Errorf("unreachable key source error = %v, want internal error", err)
	}

	a = NewJWTAuthenticator(JWTConfig{}, keyFunc(func(context.Context, string) (any, error) { return nil, ErrKeyNotFound }))
	res, err := a.Authenticate(context.Background(), bearer(token))
	if err != nil || !errors.Is(res.Error, ErrKeyNotFound) {
		t.Errorf("unknown key = %+v, %v, want ErrKeyNotFound failure", res, err)
	}

	a = NewJWTAuthenticator(JWTConfig{}, nil)
	if _, err := a.Authenticate(context.Background(), bearer(token)); !errors.Is(err, ErrNoKeySource) {
		t.Errorf("nil key provider error = %v", err)
	}
}

type keyFunc func(ctx context.Context, kid string) (any, error)

func (f keyFunc) GetKey(ctx context.Context, kid string) (any, error) { return f(ctx, kid) }
