package storage

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
)

// Local stores images on the filesystem under a root directory.
type Local struct {
	root      string
	urlPrefix string
}

// NewLocal creates a filesystem store. urlPrefix is prepended to keys by URL,
// e.g. "/files" yields "/files/outputs/x.jpg".
func NewLocal(root, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Local{root: root, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Root returns the storage directory.
func (l *Local) Root() string {
	return l.root
}

// Path resolves a key to a file path inside the root. Keys escaping the root are rejected.
func (l *Local) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(l.root, clean), nil
}

// Save encodes img and writes it to the key's path, creating parent directories.
func (l *Local) Save(ctx context.Context, key string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := l.Path(key)
	if err != nil {
		return err
	}
	data, _, err := Encode(key, img)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil { //nolint:gosec // path validated by Path
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// URL returns the served path of key.
func (l *Local) URL(_ context.Context, key string) string {
	if l.urlPrefix == "" {
		return ""
	}
	return l.urlPrefix + "/" + strings.TrimPrefix(key, "/")
}
