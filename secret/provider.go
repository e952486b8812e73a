package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves a secret by reference.
//
// Implementations must be safe for concurrent use and must not log secret
// values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// ErrOutsideRoot is returned for file references that escape the root.
var ErrOutsideRoot = errors.New("secret: reference outside secrets directory")

// FileProvider reads secrets from files, such as container secret mounts.
// References are paths relative to Root; a trailing newline is trimmed.
type FileProvider struct {
	Root string
}

// NewFileProvider creates a file provider rooted at root
// ("/run/secrets" if empty).
func NewFileProvider(root string) *FileProvider {
	if root == "" {
		root = "/run/secrets"
	}
	return &FileProvider{Root: root}
}

// Name returns "file".
func (p *FileProvider) Name() string { return "file" }

// Resolve reads the referenced file.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := filepath.Join(p.Root, filepath.Clean("/"+ref))
	rel, err := filepath.Rel(p.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", ErrOutsideRoot
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

var _ Provider = (*FileProvider)(nil)
