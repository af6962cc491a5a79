package blobstore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Antoine93/anki-doc-master/internal/fsutil"
)

// FS stores blobs as files under a root directory. Keys map directly to
// relative paths, which keeps the on-disk layout browsable.
type FS struct {
	root string
}

// NewFS creates a filesystem-backed store rooted at dir.
func NewFS(dir string) (*FS, error) {
	if dir == "" {
		return nil, fmt.Errorf("blobstore root cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating blobstore root: %w", err)
	}
	return &FS{root: dir}, nil
}

func (s *FS) path(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Put writes a blob atomically, creating parent directories as needed.
func (s *FS) Put(key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return fsutil.AtomicWriteFile(path, data, 0o600)
}

// Get reads a blob.
func (s *FS) Get(key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, err
	}
	return data, nil
}

// Exists reports whether a blob is present.
func (s *FS) Exists(key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ScanPrefix walks the directory mapped to prefix and returns file keys in
// lexical order. An empty prefix scans the whole store.
func (s *FS) ScanPrefix(prefix string) ([]string, error) {
	dir := s.root
	if prefix != "" {
		cleaned, err := cleanKey(prefix)
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(s.root, filepath.FromSlash(cleaned))
	}

	var keys []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes one blob. Missing keys are not an error.
func (s *FS) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DeletePrefix removes the whole subtree mapped to prefix.
func (s *FS) DeletePrefix(prefix string) (bool, error) {
	cleaned, err := cleanKey(prefix)
	if err != nil {
		return false, err
	}
	dir := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(dir, s.root) {
		return false, fmt.Errorf("prefix escapes store root: %q", prefix)
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, err
	}
	return true, nil
}

// Close is a no-op for the filesystem backend.
func (s *FS) Close() error {
	return nil
}
