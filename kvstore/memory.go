package kvstore

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process KV implementation.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	options map[string][]byte
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*memoryEntry),
		options: make(map[string][]byte),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get retrieves a value. Returns (nil, false) on miss or expiry.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		// Expired - clean up lazily
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur == entry {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	return cloneBytes(entry.value), true
}

// Set stores a value. ttl <= 0 means the value does not expire.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if !validKey(key) {
		return ErrInvalidKey
	}

	entry := &memoryEntry{value: cloneBytes(value)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes a value. Idempotent.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// GetOption retrieves a persistent option.
func (m *Memory) GetOption(_ context.Context, name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.options[name]
	if !ok {
		return nil, false
	}
	return cloneBytes(v), true
}

// SetOption stores a persistent option.
func (m *Memory) SetOption(_ context.Context, name string, value []byte) error {
	if !validKey(name) {
		return ErrInvalidKey
	}
	m.mu.Lock()
	m.options[name] = cloneBytes(value)
	m.mu.Unlock()
	return nil
}

// DeleteOption removes a persistent option. Idempotent.
func (m *Memory) DeleteOption(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.options, name)
	m.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(_ context.Context) error {
	return nil
}

// Len reports the number of volatile entries, including expired ones not yet collected.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Ensure Memory implements KV
var _ KV = (*Memory)(nil)
