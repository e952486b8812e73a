package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/sidenav/observe"
)

// JWKSConfig configures a JWKS-backed key provider.
type JWKSConfig struct {
	URL string

	// CacheTTL is how long fetched keys are trusted.
	// Default: 1 hour
	CacheTTL time.Duration

	// MinRefreshInterval throttles refetches triggered by unknown key ids.
	// Default: 1 minute
	MinRefreshInterval time.Duration

	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client

	Now    func() time.Time
	Logger observe.Logger
}

// JWKSKeyProvider serves RSA and EC verification keys from a JWKS endpoint.
//
// Contract:
// - Concurrency: safe for concurrent use; concurrent refreshes collapse into
// one request.
// - Errors: when a refresh fails, previously fetched keys keep serving.
type JWKSKeyProvider struct {
	config JWKSConfig

	mu        sync.RWMutex
	keys      map[string]any
	fetchedAt time.Time
	group     singleflight.Group
}

// NewJWKSKeyProvider creates a JWKS key provider.
func NewJWKSKeyProvider(config JWKSConfig) *JWKSKeyProvider {
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}
	if config.MinRefreshInterval <= 0 {
		config.MinRefreshInterval = time.Minute
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	return &JWKSKeyProvider{config: config, keys: map[string]any{}}
}

// GetKey returns the key for keyID. An empty keyID resolves only when the
// set holds exactly one key.
func (p *JWKSKeyProvider) GetKey(ctx context.Context, keyID string) (any, error) {
	now := p.config.Now()

	p.mu.RLock()
	key := p.lookupLocked(keyID)
	age := now.Sub(p.fetchedAt)
	fetched := !p.fetchedAt.IsZero()
	p.mu.RUnlock()

	fresh := fetched && age < p.config.CacheTTL
	if key != nil && fresh {
		return key, nil
	}
	if key == nil && fetched && age < p.config.MinRefreshInterval {
		return nil, ErrKeyNotFound
	}

	_, err, _ := p.group.Do("refresh", func() (any, error) {
		return nil, p.refresh(ctx)
	})
	if err != nil {
		if key != nil {
			p.config.Logger.Warn(ctx, "jwks refresh failed; serving cached key",
				observe.F("url", p.config.URL), observe.F("error", err))
			return key, nil
		}
		return nil, err
	}

	p.mu.RLock()
	key = p.lookupLocked(keyID)
	p.mu.RUnlock()
	if key == nil {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (p *JWKSKeyProvider) lookupLocked(keyID string) any {
	if keyID != "" {
		return p.keys[keyID]
	}
	if len(p.keys) != 1 {
		return nil
	}
	for _, k := range p.keys {
		return k
	}
	return nil
}

func (p *JWKSKeyProvider) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return fmt.Errorf("auth: jwks request: %w", err)
	}
	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth: fetch jwks: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("auth: decode jwks: %w", err)
	}

	keys := make(map[string]any, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			p.config.Logger.Debug(ctx, "jwks key skipped", observe.F("kid", k.Kid), observe.F("error", err))
			continue
		}
		keys[k.Kid] = pub
	}

	p.mu.Lock()
	// A refresh that yields nothing usable keeps the previous set.
	if len(keys) > 0 {
		p.keys = keys
	}
	p.fetchedAt = p.config.Now()
	p.mu.Unlock()
	return nil
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

var errUnsupportedKey = errors.New("unsupported key type")

func (k jwk) publicKey() (any, error) {
	switch k.Kty {
	case "RSA":
		n, err := b64Int(k.N)
		if err != nil {
			return nil, fmt.Errorf("n: %w", err)
		}
		e, err := b64Int(k.E)
		if err != nil {
			return nil, fmt.Errorf("e: %w", err)
		}
		if !e.IsInt64() || e.Int64() < 3 {
			return nil, errors.New("e out of range")
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
	case "EC":
		var curve elliptic.Curve
		switch k.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("curve %q: %w", k.Crv, errUnsupportedKey)
		}
		x, err := b64Int(k.X)
		if err != nil {
			return nil, fmt.Errorf("x: %w", err)
		}
		y, err := b64Int(k.Y)
		if err != nil {
			return nil, fmt.Errorf("y: %w", err)
		}
		return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
	default:
		return nil, fmt.Errorf("kty %q: %w", k.Kty, errUnsupportedKey)
	}
}

func b64Int(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing")
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

var _ KeyProvider = (*JWKSKeyProvider)(nil)
