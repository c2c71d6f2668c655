// Package filesystem implements kvstorage.Durable using the local filesystem.
// Each key is stored as a JSON file in a named table directory under the
// buttonkit data directory. Changes made by other processes are picked up
// through fsnotify.
package filesystem

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"buttonkit/internal/kvstorage"

	"github.com/fsnotify/fsnotify"
)

// Store implements kvstorage.Durable using filesystem-backed JSON files.
// Each table is a directory, and each key is a .json file within it.
type Store struct {
	dir string // absolute path to the table directory
}

// New creates a new filesystem KV store for the given table.
// root is the data directory; table is the table name.
// Returns an error if the table name is invalid.
func New(root, table string) (*Store, error) {
	if err := kvstorage.ValidateTableName(table); err != nil {
		return nil, err
	}
	return &Store{dir: filepath.Join(root, table)}, nil
}

// Dir returns the table directory.
func (s *Store) Dir() string {
	return s.dir
}

// Init creates the table directory if it doesn't exist.
func (s *Store) Init(ctx context.Context) error {
	return os.MkdirAll(s.dir, 0755)
}

// Available reports whether the table directory exists.
func (s *Store) Available(ctx context.Context) bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// Set stores a value for the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte, opts kvstorage.SetOptions) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	path := s.keyPath(key)
	if opts.FailIfExists {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("key %q: %w", key, kvstorage.ErrAlreadyExists)
		}
	}
	return s.write(path, value)
}

// Get retrieves the value for the given key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kvstorage.ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			if !s.Available(ctx) {
				return nil, fmt.Errorf("table %s: %w", s.dir, kvstorage.ErrUnavailable)
			}
			return nil, fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
		}
		return nil, err
	}
	return data, nil
}

// Update replaces the value for an existing key.
func (s *Store) Update(ctx context.Context, key string, value []byte) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	path := s.keyPath(key)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
	}
	return s.write(path, value)
}

// Delete removes a key and its value.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	path := s.keyPath(key)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
		}
		return err
	}
	return nil
}

// List returns all keys in the table.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if key, ok := keyFromName(entry.Name()); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Watch delivers a Change for every key file that is created, rewritten or
// removed in the table directory. Rewrites that leave the content unchanged
// are not reported.
func (s *Store) Watch(fn kvstorage.ChangeFunc) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("watching %s: %w", s.dir, kvstorage.ErrUnavailable)
		}
		return nil, fmt.Errorf("watching %s: %w", s.dir, err)
	}

	last := s.snapshot()
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				key, ok := keyFromName(filepath.Base(ev.Name))
				if !ok {
					continue
				}
				next, err := os.ReadFile(ev.Name)
				if err != nil {
					if !os.IsNotExist(err) {
						continue
					}
					next = nil
				}
				prev, seen := last[key]
				if seen == (next != nil) && bytes.Equal(prev, next) {
					continue
				}
				if next == nil {
					delete(last, key)
				} else {
					last[key] = next
				}
				fn([]kvstorage.Change{{Key: key, OldValue: prev, NewValue: next}})
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			w.Close()
		})
	}
	return stop, nil
}

// snapshot reads every key currently in the table.
func (s *Store) snapshot() map[string][]byte {
	out := make(map[string][]byte)
	keys, _ := s.List(context.Background())
	for _, key := range keys {
		if data, err := os.ReadFile(s.keyPath(key)); err == nil {
			out[key] = data
		}
	}
	return out
}

// keyPath returns the filesystem path for a key.
func (s *Store) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// write stores data at path, reporting a missing table directory as unavailable.
func (s *Store) write(path string, data []byte) error {
	if err := atomicWrite(path, data); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("table %s: %w", s.dir, kvstorage.ErrUnavailable)
		}
		return err
	}
	return nil
}

// keyFromName maps a file name in the table directory back to its key.
// Temporary files from in-flight atomic writes are ignored.
func keyFromName(name string) (string, bool) {
	if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}

// atomicWrite writes data to a file atomically via a temporary file and rename.
func atomicWrite(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("generating random suffix: %w", err)
	}
	tmp := path + ".tmp." + hex.EncodeToString(randBytes)

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best effort cleanup
		return err
	}
	return nil
}

var _ kvstorage.Durable = (*Store)(nil)
