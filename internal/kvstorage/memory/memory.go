// Package memory implements kvstorage.Durable in process memory.
//
// It backs ephemeral CLI sessions and tests. Writes are delivered to
// watchers synchronously, after the store lock is released.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"buttonkit/internal/kvstorage"
)

// Store is an in-memory kvstorage.Durable.
type Store struct {
	mu          sync.Mutex
	data        map[string][]byte
	watchers    map[int]kvstorage.ChangeFunc
	nextWatcher int
	unavailable bool
}

// New returns an empty, available store.
func New() *Store {
	return &Store{
		data:     make(map[string][]byte),
		watchers: make(map[int]kvstorage.ChangeFunc),
	}
}

// SetAvailable toggles availability. While unavailable every operation
// fails with kvstorage.ErrUnavailable.
func (s *Store) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = !available
}

// Available reports whether the store accepts operations.
func (s *Store) Available(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unavailable
}

// Set stores a value for the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte, opts kvstorage.SetOptions) error {
	if err := kvstorage.ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	if s.unavailable {
		s.mu.Unlock()
		return kvstorage.ErrUnavailable
	}
	old, exists := s.data[key]
	if exists && opts.FailIfExists {
		s.mu.Unlock()
		return fmt.Errorf("key %q: %w", key, kvstorage.ErrAlreadyExists)
	}
	s.data[key] = bytes.Clone(value)
	fns := s.watcherFuncs()
	s.mu.Unlock()

	if !exists || !bytes.Equal(old, value) {
		deliver(fns, kvstorage.Change{Key: key, OldValue: old, NewValue: bytes.Clone(value)})
	}
	return nil
}

// Get retrieves the value for the given key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, kvstorage.ErrUnavailable
	}
	v, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
	}
	return bytes.Clone(v), nil
}

// Update replaces the value for an existing key.
func (s *Store) Update(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	if s.unavailable {
		s.mu.Unlock()
		return kvstorage.ErrUnavailable
	}
	_, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
	}
	return s.Set(ctx, key, value, kvstorage.SetOptions{})
}

// Delete removes a key and its value.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	if s.unavailable {
		s.mu.Unlock()
		return kvstorage.ErrUnavailable
	}
	old, ok := s.data[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("key %q: %w", key, kvstorage.ErrKeyNotFound)
	}
	delete(s.data, key)
	fns := s.watcherFuncs()
	s.mu.Unlock()

	deliver(fns, kvstorage.Change{Key: key, OldValue: old})
	return nil
}

// List returns all keys in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, kvstorage.ErrUnavailable
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Watch registers fn for every subsequent change.
func (s *Store) Watch(fn kvstorage.ChangeFunc) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers, id)
		})
	}, nil
}

// Watchers returns the number of active watchers.
func (s *Store) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// watcherFuncs snapshots the registered watchers. Callers hold s.mu.
func (s *Store) watcherFuncs() []kvstorage.ChangeFunc {
	ids := make([]int, 0, len(s.watchers))
	for id := range s.watchers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]kvstorage.ChangeFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.watchers[id])
	}
	return fns
}

func deliver(fns []kvstorage.ChangeFunc, change kvstorage.Change) {
	for _, fn := range fns {
		fn([]kvstorage.Change{change})
	}
}

var _ kvstorage.Durable = (*Store)(nil)
