package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
)

// StorageError wraps a snapshot read or write failure with the resource it
// concerned.
type StorageError struct {
	ID  string
	Op  string // "get" or "put"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store persists the last-known content per resource, one file per resource
// id. There is never more than one snapshot per resource: Put overwrites.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".cache")
}

// Get returns the stored snapshot for the resource, or ok=false if none
// exists yet (first run for that resource).
func (s *Store) Get(id string) (content string, ok bool, err error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, &StorageError{ID: id, Op: "get", Err: err}
	}
	return string(data), true, nil
}

// Put overwrites (or creates) the snapshot for the resource. The content is
// written to a temp file, synced, and renamed into place, so a crash mid-write
// never leaves a truncated snapshot behind.
func (s *Store) Put(id, content string) error {
	tmp, err := os.CreateTemp(s.dir, id+".tmp-*")
	if err != nil {
		return &StorageError{ID: id, Op: "put", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{ID: id, Op: "put", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{ID: id, Op: "put", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StorageError{ID: id, Op: "put", Err: err}
	}

	if err := os.Rename(tmpName, s.path(id)); err != nil {
		os.Remove(tmpName)
		return &StorageError{ID: id, Op: "put", Err: err}
	}
	return nil
}
