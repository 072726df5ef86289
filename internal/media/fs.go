package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// BlobStore persists raw blobs under opaque keys.
type BlobStore interface {
	Put(key string, data []byte) error
	// Open returns the blob for reading along with its modification
	// time, for conditional serving. The caller closes the file.
	Open(key string) (*os.File, time.Time, error)
	Delete(key string) error
}

// keyRe matches the keys this package issues: a UUID plus extension.
// Anything else is rejected before it can touch the filesystem.
var keyRe = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}\.[a-z0-9]{2,5}$`)

// FSStore keeps blobs as flat files in a single directory.
type FSStore struct {
	dir string
}

// NewFSStore creates the directory if needed and returns a store
// rooted there.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(key string, data []byte) error {
	if !keyRe.MatchString(key) {
		return ErrInvalidKey
	}
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

func (s *FSStore) Open(key string) (*os.File, time.Time, error) {
	if !keyRe.MatchString(key) {
		return nil, time.Time{}, ErrInvalidKey
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("open blob: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, time.Time{}, fmt.Errorf("stat blob: %w", err)
	}
	return f, info.ModTime(), nil
}

func (s *FSStore) Delete(key string) error {
	if !keyRe.MatchString(key) {
		return ErrInvalidKey
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
