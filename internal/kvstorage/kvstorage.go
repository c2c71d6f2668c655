// Package kvstorage defines the durable key-value port that settings are
// persisted through. Values are opaque bytes; backends also expose a change
// feed so that writes made by another process reach local subscribers.
package kvstorage

import (
	"context"
	"fmt"
	"strings"
)

// KVStore defines the interface for generic key-value persistence.
// Each store operates on a single "table" (one flat document of keys).
type KVStore interface {
	// Set stores a value for the given key.
	// If opts.FailIfExists is true and the key already exists, returns ErrAlreadyExists.
	// Otherwise, overwrites the existing value.
	Set(ctx context.Context, key string, value []byte, opts SetOptions) error

	// Get retrieves the value for the given key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Update replaces the value for an existing key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Update(ctx context.Context, key string, value []byte) error

	// Delete removes a key and its value.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// List returns all keys in the table.
	List(ctx context.Context) ([]string, error)
}

// SetOptions controls Set behavior.
type SetOptions struct {
	// FailIfExists causes Set to return ErrAlreadyExists if the key is already present.
	FailIfExists bool
}

// Change describes one key transition observed on a change feed.
// A nil NewValue means the key was removed. OldValue is nil when the
// backend did not know the previous value.
type Change struct {
	Key      string
	OldValue []byte
	NewValue []byte
}

// ChangeFunc receives batches of changes from a Watcher.
type ChangeFunc func(changes []Change)

// Watcher is implemented by stores that can report changes, including
// changes made by other processes sharing the same backing storage.
type Watcher interface {
	// Watch starts delivering changes to fn until stop is called.
	// stop is safe to call more than once.
	Watch(fn ChangeFunc) (stop func(), err error)
}

// Durable is the full capability the settings engine needs from a backend.
type Durable interface {
	KVStore
	Watcher

	// Available reports whether the store can currently serve reads and writes.
	Available(ctx context.Context) bool
}

// ValidateTableName checks that a table name is non-empty and usable as a
// single path or key segment.
func ValidateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty: %w", ErrInvalidTable)
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("table name %q: %w", name, ErrInvalidTable)
	}
	return nil
}

// ValidateKey checks that a key is non-empty and doesn't contain path separators.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("key %q contains path separator", key)
	}
	return nil
}
