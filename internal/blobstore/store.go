// Package blobstore provides the key-value layer under the output store.
// Keys are slash-separated paths; values are opaque blobs (JSON documents
// and the formatted deck text). Prefix scans back the store's listing and
// recursive-delete operations.
package blobstore

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Store is a key-value store with prefix scanning. Implementations must
// make Put atomic: a reader never observes a half-written value.
type Store interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, error)
	Exists(key string) (bool, error)
	// ScanPrefix returns the keys under prefix in lexical order.
	ScanPrefix(prefix string) ([]string, error)
	Delete(key string) error
	// DeletePrefix removes every key under prefix and reports whether
	// anything was removed.
	DeletePrefix(prefix string) (bool, error)
	Close() error
}

// NotFoundError is returned by Get for absent keys.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("blob not found: %s", e.Key)
}

// IsNotFound reports whether err is a missing-key error.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// Options configures store creation.
type Options struct {
	Backend string // fs or sqlite
	Root    string // filesystem root for the fs backend
	Path    string // database file for the sqlite backend
}

// New creates a store for the configured backend.
func New(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "fs":
		return NewFS(opts.Root)
	case "sqlite":
		path := opts.Path
		if path == "" {
			path = filepath.Join(opts.Root, "ankidoc.db")
		}
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown blobstore backend %q", opts.Backend)
	}
}

// cleanKey normalizes a key and rejects traversal outside the store.
func cleanKey(key string) (string, error) {
	key = strings.Trim(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", fmt.Errorf("empty key")
	}
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("key escapes store root: %q", key)
	}
	return cleaned, nil
}
