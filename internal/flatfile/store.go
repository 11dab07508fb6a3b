// Package flatfile persists users, complaints and idempotency records as JSON
// arrays on local disk, one file per collection. Every write replaces the
// whole collection through a temp file that is renamed over the target, so a
// reader never observes a partially written file.
//
// Within one process each collection is guarded by a mutex held across the
// full read-modify-write. Separate processes sharing a directory are not
// coordinated; the last writer wins.
package flatfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Collection names map 1:1 to <dir>/<name>.json.
const (
	CollectionUsers       = "users"
	CollectionComplaints  = "complaints"
	CollectionIdempotency = "idempotency"
)

var collections = []string{CollectionUsers, CollectionComplaints, CollectionIdempotency}

// Sentinel errors shared by the collection types.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrStale     = errors.New("stale record version")
)

// StorageError reports an I/O or encoding failure on a collection file.
type StorageError struct {
	Op   string // read, write, decode, encode, init
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("flatfile %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store is the root of a flat-file database.
type Store struct {
	dir   string
	locks map[string]*sync.Mutex
}

// Open creates dir if needed and initializes every missing collection to [].
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StorageError{Op: "init", Path: dir, Err: err}
	}
	s := &Store{dir: dir, locks: make(map[string]*sync.Mutex, len(collections))}
	for _, name := range collections {
		s.locks[name] = &sync.Mutex{}
		path := s.path(name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := writeFile(path, []byte("[]")); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, &StorageError{Op: "init", Path: path, Err: err}
		}
	}
	return s, nil
}

// Users returns the user directory backed by users.json.
func (s *Store) Users() *UserDirectory { return &UserDirectory{s: s} }

// Complaints returns the complaint repository backed by complaints.json.
func (s *Store) Complaints() *ComplaintRepository { return &ComplaintRepository{s: s} }

// Idempotency returns the idempotency log backed by idempotency.json.
func (s *Store) Idempotency() *IdempotencyLog { return &IdempotencyLog{s: s} }

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// lock acquires the collection mutex and returns its release func.
func (s *Store) lock(collection string) func() {
	mu := s.locks[collection]
	mu.Lock()
	return mu.Unlock
}

// readAll decodes the whole collection. A missing file reads as empty.
func readAll[T any](s *Store, collection string) ([]T, error) {
	path := s.path(collection)
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Path: path, Err: err}
	}
	out := []T{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &StorageError{Op: "decode", Path: path, Err: err}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// writeAll replaces the whole collection.
func writeAll[T any](s *Store, collection string, records []T) error {
	path := s.path(collection)
	if records == nil {
		records = []T{}
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Path: path, Err: err}
	}
	return writeFile(path, raw)
}

// writeFile writes data to a sibling temp file, syncs it, and renames it over
// path.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}
