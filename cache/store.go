package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/sidenav/kvstore"
	"github.com/jonwraymond/sidenav/observe"
)

// Store is the sidebar fragment cache.
//
// Contract:
// - Concurrency: safe for concurrent use within one process. Read-modify-write
// of the index and metrics documents is serialized by an internal mutex.
// - Errors: lookups never fail; a broken backend reads as a miss.
type Store struct {
	kv     kvstore.KV
	keyer  Keyer
	policy Policy
	sink   Sink
	logger observe.Logger
	now    func() time.Time

	index       localeIndex
	metricsName string

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithKeyer overrides the key derivation.
func WithKeyer(k Keyer) Option {
	return func(s *Store) {
		if k != nil {
			s.keyer = k
		}
	}
}

// WithPolicy sets the TTL policy.
func WithPolicy(p Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithSink sets the event sink.
func WithSink(sink Sink) Option {
	return func(s *Store) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger sets the logger used for backend write failures.
func WithLogger(l observe.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNamespace sets the prefix for keys and bookkeeping option names.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns = strings.TrimSpace(ns); ns != "" {
			s.keyer = NewDefaultKeyer(ns)
			s.index.name = ns + "_cache_index"
			s.metricsName = ns + "_cache_metrics"
		}
	}
}

// NewStore creates a Store over kv.
func NewStore(kv kvstore.KV, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, ErrNilStore
	}
	s := &Store{
		kv:          kv,
		keyer:       NewDefaultKeyer("sidenav"),
		policy:      DefaultPolicy(),
		sink:        nopSink{},
		logger:      observe.NopLogger(),
		now:         time.Now,
		index:       localeIndex{kv: kv, name: "sidenav_cache_index"},
		metricsName: "sidenav_cache_metrics",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Policy returns the configured TTL policy.
func (s *Store) Policy() Policy { return s.policy }

// Get returns the cached markup for (locale, suffix).
// A hit increments the entry's hit counter. Entries whose recorded expiry
// has passed are reported as misses even if the backend still holds them.
func (s *Store) Get(ctx context.Context, locale, suffix string) (string, bool) {
	locale = NormalizeLocale(locale)
	key, err := s.keyer.Key(locale, suffix)
	if err != nil {
		s.logger.Warn(ctx, "cache key derivation failed", observe.F("locale", locale), observe.F("error", err))
		s.record(ctx, Event{Type: EventMiss, Locale: locale, Suffix: suffix}, func(m *Metrics) { m.Misses++ })
		return "", false
	}

	raw, ok := s.kv.Get(ctx, key)
	now := s.now().Unix()

	s.mu.Lock()
	meta, hasMeta := s.loadMeta(ctx, key)
	if !ok || len(raw) == 0 || (hasMeta && meta.expired(now)) {
		s.mu.Unlock()
		s.record(ctx, Event{Type: EventMiss, Locale: locale, Suffix: suffix, Key: key}, func(m *Metrics) { m.Misses++ })
		return "", false
	}
	if !hasMeta {
		meta = entryMeta{Locale: locale, Suffix: suffix, CreatedAt: now}
	}
	meta.Hits++
	s.saveMeta(ctx, key, meta)
	s.mu.Unlock()

	s.record(ctx, Event{Type: EventHit, Locale: locale, Suffix: suffix, Key: key}, func(m *Metrics) { m.Hits++ })
	return string(raw), true
}

// Set stores html for (locale, suffix) using the policy's default TTL.
func (s *Store) Set(ctx context.Context, locale, html, suffix string) error {
	return s.SetTTL(ctx, locale, html, suffix, 0)
}

// SetTTL stores html with an explicit TTL, clamped by the policy.
// Empty markup is rejected with ErrEmptyValue. When the policy disables
// caching the call is a no-op. Overwriting an entry resets its hit counter.
func (s *Store) SetTTL(ctx context.Context, locale, html, suffix string, ttl time.Duration) error {
	if strings.TrimSpace(html) == "" {
		return ErrEmptyValue
	}
	if !s.policy.ShouldCache() {
		return nil
	}
	ttl = s.policy.EffectiveTTL(ttl)
	if ttl <= 0 {
		return nil
	}

	locale = NormalizeLocale(locale)
	key, err := s.keyer.Key(locale, suffix)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, key, []byte(html), ttl); err != nil {
		return fmt.Errorf("cache: store %s: %w", key, err)
	}

	now := s.now()
	meta := entryMeta{
		Locale:    locale,
		Suffix:    suffix,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}

	s.mu.Lock()
	s.saveMeta(ctx, key, meta)
	_, err = s.index.add(ctx, IndexRow{Locale: locale, Suffix: suffix})
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn(ctx, "cache index update failed", observe.F("key", key), observe.F("error", err))
	}

	s.record(ctx, Event{Type: EventSet, Locale: locale, Suffix: suffix, Key: key}, func(m *Metrics) { m.Sets++ })
	return nil
}

// ClearEntry removes exactly one entry and its index row.
func (s *Store) ClearEntry(ctx context.Context, locale, suffix string) error {
	locale = NormalizeLocale(locale)
	key, err := s.keyer.Key(locale, suffix)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = errors.Join(
		s.kv.Delete(ctx, key),
		s.kv.DeleteOption(ctx, metaName(key)),
	)
	_, ierr := s.index.remove(ctx, IndexRow{Locale: locale, Suffix: suffix})
	s.mu.Unlock()
	if err = errors.Join(err, ierr); err != nil {
		return fmt.Errorf("cache: clear %s: %w", key, err)
	}

	s.record(ctx, Event{Type: EventClearEntry, Locale: locale, Suffix: suffix, Key: key, Count: 1}, func(m *Metrics) { m.Clears++ })
	return nil
}

// Clear removes every indexed entry and resets the index. It returns the
// number of index rows that were cleared.
func (s *Store) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	rows := s.index.load(ctx)
	var errs []error
	for _, row := range rows {
		key, err := s.keyer.Key(row.Locale, row.Suffix)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, s.kv.Delete(ctx, key), s.kv.DeleteOption(ctx, metaName(key)))
	}
	errs = append(errs, s.index.save(ctx, nil))
	s.mu.Unlock()

	if err := errors.Join(errs...); err != nil {
		return len(rows), fmt.Errorf("cache: clear: %w", err)
	}
	s.record(ctx, Event{Type: EventClear, Count: len(rows)}, func(m *Metrics) { m.Clears++ })
	return len(rows), nil
}

// PurgeExpiredEntries deletes entries whose recorded expiry lies before now
// and prunes index rows that no longer refer to anything. Unexpired entries
// are left untouched. It returns the number of entries removed.
func (s *Store) PurgeExpiredEntries(ctx context.Context) (int, error) {
	now := s.now().Unix()

	s.mu.Lock()
	rows := s.index.load(ctx)
	kept := make([]IndexRow, 0, len(rows))
	purged := 0
	var errs []error
	for _, row := range rows {
		key, err := s.keyer.Key(row.Locale, row.Suffix)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		meta, ok := s.loadMeta(ctx, key)
		if ok && meta.expired(now) {
			errs = append(errs, s.kv.Delete(ctx, key), s.kv.DeleteOption(ctx, metaName(key)))
			purged++
			continue
		}
		if !ok {
			if _, live := s.kv.Get(ctx, key); !live {
				continue
			}
		}
		kept = append(kept, row)
	}
	if len(kept) != len(rows) {
		errs = append(errs, s.index.save(ctx, kept))
	}
	s.mu.Unlock()

	if purged > 0 {
		s.record(ctx, Event{Type: EventPurge, Count: purged}, func(m *Metrics) { m.Purged += int64(purged) })
	}
	if err := errors.Join(errs...); err != nil {
		return purged, fmt.Errorf("cache: purge: %w", err)
	}
	return purged, nil
}

// Entries lists the indexed entries with their metadata.
func (s *Store) Entries(ctx context.Context) []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.index.load(ctx)
	out := make([]EntryInfo, 0, len(rows))
	for _, row := range rows {
		key, err := s.keyer.Key(row.Locale, row.Suffix)
		if err != nil {
			continue
		}
		info := EntryInfo{Locale: row.Locale, Suffix: row.Suffix, Key: key}
		if meta, ok := s.loadMeta(ctx, key); ok {
			info.CreatedAt = meta.CreatedAt
			info.ExpiresAt = meta.ExpiresAt
			info.Hits = meta.Hits
		}
		out = append(out, info)
	}
	return out
}

// Stats returns the cumulative metrics.
func (s *Store) Stats(ctx context.Context) Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadMetrics(ctx)
}

// Ping checks the backing store.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func (s *Store) record(ctx context.Context, ev Event, mutate func(*Metrics)) {
	s.mu.Lock()
	m := s.loadMetrics(ctx)
	mutate(&m)
	if raw, err := json.Marshal(m); err == nil {
		if err := s.kv.SetOption(ctx, s.metricsName, raw); err != nil {
			s.logger.Warn(ctx, "cache metrics write failed", observe.F("error", err))
		}
	}
	s.mu.Unlock()

	ev.Metrics = m
	ev.At = s.now()
	s.sink.Record(ctx, ev)
}

func (s *Store) loadMetrics(ctx context.Context) Metrics {
	var m Metrics
	if raw, ok := s.kv.GetOption(ctx, s.metricsName); ok {
		_ = json.Unmarshal(raw, &m)
	}
	return m
}

func (s *Store) loadMeta(ctx context.Context, key string) (entryMeta, bool) {
	raw, ok := s.kv.GetOption(ctx, metaName(key))
	if !ok {
		return entryMeta{}, false
	}
	var meta entryMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return entryMeta{}, false
	}
	return meta, true
}

func (s *Store) saveMeta(ctx context.Context, key string, meta entryMeta) {
	raw, err := json.Marshal(meta)
	if err == nil {
		err = s.kv.SetOption(ctx, metaName(key), raw)
	}
	if err != nil {
		s.logger.Warn(ctx, "cache metadata write failed", observe.F("key", key), observe.F("error", err))
	}
}

func metaName(key string) string { return key + ":meta" }

// Key returns the store key for (locale, suffix).
func (s *Store) Key(locale, suffix string) (string, error) {
	return s.keyer.Key(NormalizeLocale(locale), suffix)
}
