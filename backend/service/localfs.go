package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// LocalStorage keeps artifacts as files under a root directory.
type LocalStorage struct {
	fs afero.Fs
}

// NewLocalStorage stores artifacts under dir on the OS filesystem.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := afero.NewOsFs().MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}
	return NewLocalStorageFs(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// NewLocalStorageFs stores artifacts on an arbitrary afero filesystem.
func NewLocalStorageFs(fsys afero.Fs) *LocalStorage {
	return &LocalStorage{fs: fsys}
}

// Put writes data to a temp file and renames it into place.
func (s *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	name, err := cleanKey(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(name)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := s.fs.Rename(tmpName, name); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes key. Missing keys are not an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	name, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// cleanKey maps an object key to a relative file path that cannot escape
// the storage root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.FromSlash(cleaned), nil
}
