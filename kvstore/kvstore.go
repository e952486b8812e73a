package kvstore

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for store operations.
var (
	ErrClosed     = errors.New("kvstore: store is closed")
	ErrInvalidKey = errors.New("kvstore: key is invalid")
)

// Store holds volatile values that may expire.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; it returns (nil, false) on miss or expiry.
// - TTL: ttl <= 0 stores the value without expiry.
// - Delete is idempotent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Options holds persistent named values that never expire.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - No compare-and-swap is offered; concurrent writers are last-write-wins.
type Options interface {
	GetOption(ctx context.Context, name string) ([]byte, bool)
	SetOption(ctx context.Context, name string, value []byte) error
	DeleteOption(ctx context.Context, name string) error
}

// KV is the full persistence port: volatile entries plus registered options.
type KV interface {
	Store
	Options

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

func validKey(key string) bool {
	return key != "" && len(key) <= 512
}
