package cache

import (
	"context"
	"encoding/json"

	"github.com/jonwraymond/sidenav/kvstore"
)

// IndexRow records one cached (locale, suffix) pair.
type IndexRow struct {
	Locale string `json:"locale"`
	Suffix string `json:"suffix,omitempty"`
}

// localeIndex is the persisted list of rows. Callers hold Store.mu.
type localeIndex struct {
	kv   kvstore.Options
	name string
}

// load returns the rows with duplicates removed, preserving first-seen order.
// A corrupt document reads as empty.
func (x localeIndex) load(ctx context.Context) []IndexRow {
	raw, ok := x.kv.GetOption(ctx, x.name)
	if !ok {
		return nil
	}
	var rows []IndexRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil
	}
	return dedupRows(rows)
}

func (x localeIndex) save(ctx context.Context, rows []IndexRow) error {
	if len(rows) == 0 {
		return x.kv.DeleteOption(ctx, x.name)
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return x.kv.SetOption(ctx, x.name, raw)
}

// add inserts row if absent. It reports whether the index changed.
func (x localeIndex) add(ctx context.Context, row IndexRow) (bool, error) {
	rows := x.load(ctx)
	for _, r := range rows {
		if r == row {
			return false, nil
		}
	}
	return true, x.save(ctx, append(rows, row))
}

// remove drops row if present. It reports whether the index changed.
func (x localeIndex) remove(ctx context.Context, row IndexRow) (bool, error) {
	rows := x.load(ctx)
	kept := rows[:0]
	for _, r := range rows {
		if r != row {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(rows) {
		return false, nil
	}
	return true, x.save(ctx, kept)
}

func dedupRows(rows []IndexRow) []IndexRow {
	seen := make(map[IndexRow]struct{}, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
