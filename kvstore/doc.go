// Package kvstore provides the persisted key-value port shared across
// requests, with in-memory and SQLite adapters.
//
// Two namespaces exist: volatile entries (Get/Set/Delete with TTL) for
// rendered fragments, and options (GetOption/SetOption/DeleteOption) for
// bookkeeping such as the locale index and per-entry metadata. Neither
// namespace offers transactions; callers must tolerate last-write-wins.
package kvstore
