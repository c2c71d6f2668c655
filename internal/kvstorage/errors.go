package kvstorage

import "errors"

var (
	// ErrKeyNotFound is returned when a key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrAlreadyExists is returned when Set is called with FailIfExists
	// and the key already exists.
	ErrAlreadyExists = errors.New("key already exists")

	// ErrUnavailable is returned when the backing store cannot be reached,
	// for example because its directory was removed or the server is down.
	ErrUnavailable = errors.New("store unavailable")

	// ErrInvalidTable is returned when a table name cannot be used.
	ErrInvalidTable = errors.New("invalid table name")
)
