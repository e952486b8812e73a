// Package cache stores rendered sidebar fragments keyed by locale and
// optional profile suffix.
//
// Entries live in a kvstore.KV: the markup under a derived key with a TTL,
// per-entry metadata (expiry, hit counter) and a de-duplicated locale index
// in persistent options. The index lets Clear and PurgeExpiredEntries
// enumerate exactly the live entries without scanning the store. Every
// operation reports an Event carrying cumulative metrics to a Sink.
package cache
