package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonwraymond/sidenav/internal/coerce"
	"github.com/jonwraymond/sidenav/kvstore"
)

// ErrNilRepository is returned when a Selector is built without a Repository.
var ErrNilRepository = errors.New("profile: repository is nil")

// Repository supplies the default settings and raw profile records.
// Implementations must be safe for concurrent use; callers treat the
// returned values as read-only.
type Repository interface {
	Options(ctx context.Context) (map[string]any, error)
	Profiles(ctx context.Context) ([]map[string]any, error)
}

// StaticRepository serves fixed values.
type StaticRepository struct {
	Defaults map[string]any
	Records  []map[string]any
}

// Options returns the default settings.
func (r StaticRepository) Options(context.Context) (map[string]any, error) {
	return r.Defaults, nil
}

// Profiles returns the raw profile records.
func (r StaticRepository) Profiles(context.Context) ([]map[string]any, error) {
	return r.Records, nil
}

// KVRepository reads JSON documents from kvstore options:
// "<ns>_options" holds the settings map and "<ns>_profiles" the record list.
type KVRepository struct {
	kv           kvstore.Options
	optionsName  string
	profilesName string
}

// NewKVRepository creates a repository under namespace ns ("sidenav" if empty).
func NewKVRepository(kv kvstore.Options, ns string) *KVRepository {
	if ns == "" {
		ns = "sidenav"
	}
	return &KVRepository{kv: kv, optionsName: ns + "_options", profilesName: ns + "_profiles"}
}

// Options returns the stored settings, or an empty map when none are stored.
func (r *KVRepository) Options(ctx context.Context) (map[string]any, error) {
	raw, ok := r.kv.GetOption(ctx, r.optionsName)
	if !ok {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("profile: decode %s: %w", r.optionsName, err)
	}
	return out, nil
}

// Profiles returns the stored records, or nil when none are stored.
func (r *KVRepository) Profiles(ctx context.Context) ([]map[string]any, error) {
	raw, ok := r.kv.GetOption(ctx, r.profilesName)
	if !ok {
		return nil, nil
	}
	var out []map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("profile: decode %s: %w", r.profilesName, err)
	}
	return out, nil
}

// SaveOptions stores the settings map.
func (r *KVRepository) SaveOptions(ctx context.Context, opts map[string]any) error {
	return r.save(ctx, r.optionsName, coerce.Plain(opts))
}

// SaveProfiles stores the raw record list.
func (r *KVRepository) SaveProfiles(ctx context.Context, records []map[string]any) error {
	plain := make([]any, len(records))
	for i, rec := range records {
		plain[i] = coerce.Plain(rec)
	}
	return r.save(ctx, r.profilesName, plain)
}

func (r *KVRepository) save(ctx context.Context, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("profile: encode %s: %w", name, err)
	}
	return r.kv.SetOption(ctx, name, raw)
}

// EmbeddedProfiles extracts the record list stored under the settings'
// "profiles" key. Entries that are not maps are skipped.
func EmbeddedProfiles(settings map[string]any) []map[string]any {
	list, ok := settings[ProfilesKey].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := coerce.Map(item); ok {
			out = append(out, m)
		}
	}
	return out
}

var (
	_ Repository = StaticRepository{}
	_ Repository = (*KVRepository)(nil)
)
