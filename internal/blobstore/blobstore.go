// Package blobstore persists raw uploaded document bytes.
//
// The Store interface is the contract between the document pipeline and
// whatever holds the bytes; FSStore is the shipped filesystem implementation.
// Locators returned by Put are opaque to callers and stored verbatim on the
// document row.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidKey indicates a blob key that could escape the store root.
	ErrInvalidKey = errors.New("invalid blob key")
	// ErrNotFound indicates no blob exists under the key.
	ErrNotFound = errors.New("blob not found")
)

// Store holds raw document bytes under caller-chosen keys.
type Store interface {
	// Put stores data under key and returns a locator for the stored blob.
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// FSStore stores blobs as files under a single root directory.
type FSStore struct {
	root string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates a filesystem blob store rooted at dir, creating the
// directory if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob store directory is required")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving blob store path: %w", err)
	}

	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("creating blob store directory: %w", err)
	}

	return &FSStore{root: abs}, nil
}

// Put implements Store. The write is atomic: data lands under a temp name and
// is renamed into place.
func (s *FSStore) Put(_ context.Context, key string, data []byte) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return "", fmt.Errorf("writing blob %q: %w", key, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming blob %q: %w", key, err)
	}

	return "file://" + path, nil
}

// Get implements Store.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("reading blob %q: %w", key, err)
	}
	return data, nil
}

// Delete implements Store. Deleting a missing blob is not an error.
func (s *FSStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob %q: %w", key, err)
	}
	return nil
}

// Exists implements Store.
func (s *FSStore) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking blob %q: %w", key, err)
	}
	return true, nil
}

// path maps a key to an absolute file path, rejecting keys that could escape
// the store root.
func (s *FSStore) path(key string) (string, error) {
	if key == "" || key == "." ||
		strings.ContainsAny(key, `/\`) ||
		strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, key), nil
}
