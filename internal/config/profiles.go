package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/sidenav/profile"
	"github.com/jonwraymond/sidenav/render"
)

// ProfilesDocument is the on-disk shape of a profiles file.
//
//	options:            # default sidebar settings
//	  title: Docs
//	  items: [...]
//	profiles:           # ordered profile records
//	  - id: members
//	    conditions: {logged_in: true}
//	    settings: {title: Members}
//	links:              # content id -> URL for item targets
//	  12: /docs/start
type ProfilesDocument struct {
	Options  map[string]any   `yaml:"options"`
	Profiles []map[string]any `yaml:"profiles"`
	Links    map[int]string   `yaml:"links"`
}

// ErrUnknownTarget is returned by FileRepository.Link for unmapped ids.
var ErrUnknownTarget = errors.New("config: unknown link target")

// FileRepository serves profiles and links from a YAML file. It is safe
// for concurrent use; Reload swaps the whole document atomically.
type FileRepository struct {
	path string

	mu  sync.RWMutex
	doc ProfilesDocument
}

// OpenProfiles reads the profiles file at path.
func OpenProfiles(path string) (*FileRepository, error) {
	r := &FileRepository{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the watched file.
func (r *FileRepository) Path() string { return r.path }

// Reload re-reads the file. On error the previous document stays in use.
func (r *FileRepository) Reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("config: read profiles: %w", err)
	}
	doc, err := ParseProfiles(raw)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.doc = doc
	r.mu.Unlock()
	return nil
}

// ParseProfiles decodes a profiles document.
func ParseProfiles(raw []byte) (ProfilesDocument, error) {
	var doc ProfilesDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return ProfilesDocument{}, fmt.Errorf("config: decode profiles: %w", err)
	}
	if doc.Options == nil {
		doc.Options = map[string]any{}
	}
	return doc, nil
}

// Options returns the default settings.
func (r *FileRepository) Options(context.Context) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc.Options, nil
}

// Profiles returns the profile records. Records embedded under the options'
// "profiles" key are used when the document has no top-level list.
func (r *FileRepository) Profiles(context.Context) ([]map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.doc.Profiles != nil {
		return r.doc.Profiles, nil
	}
	return profile.EmbeddedProfiles(r.doc.Options), nil
}

// Link maps a content id to its URL.
func (r *FileRepository) Link(_ context.Context, target int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.doc.Links[target]; ok && u != "" {
		return u, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTarget, strconv.Itoa(target))
}

var (
	_ profile.Repository  = (*FileRepository)(nil)
	_ render.LinkResolver = (*FileRepository)(nil)
)
