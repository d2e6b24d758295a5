package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps files under a directory served at URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(s.Dir, clean), nil
}

// Put writes r to disk. The file is written to a temporary name and renamed
// into place once complete.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing media file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("moving media file: %w", err)
	}

	return s.URLPrefix + "/" + filepath.ToSlash(key), nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting media file: %w", err)
	}
	return nil
}
