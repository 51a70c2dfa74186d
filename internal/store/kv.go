package store

import (
	"context"
	"errors"
	"fmt"
)

// Keys of the persisted records.
const (
	KeyItems       = "items"
	KeyProfile     = "profile"
	KeyLoggedIn    = "logged_in"
	KeyConnections = "connections"
	KeySecretKey   = "settings:secret_key"

	imageKeyPrefix = "image:"
)

var (
	// ErrConflict is returned when a compare-and-set write sees a newer version.
	ErrConflict = errors.New("version conflict")
	// ErrNotFound is returned when an item or record does not exist.
	ErrNotFound = errors.New("not found")
)

// ConflictError describes a failed compare-and-set. It matches ErrConflict.
type ConflictError struct {
	Key      string
	Expected int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: expected version %d: %v", e.Key, e.Expected, ErrConflict)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// KV is an opaque key-value store. Every key carries a version that starts at 1
// and increases on each write. Version 0 means the key does not exist.
type KV interface {
	// Get returns the value and version of key. A missing key yields nil, 0, nil.
	Get(ctx context.Context, key string) ([]byte, int64, error)
	// Put unconditionally stores value and returns the new version.
	Put(ctx context.Context, key string, value []byte) (int64, error)
	// CompareAndSet stores value only if the current version equals expected.
	// Expected 0 creates the key only if it is absent. A mismatch returns a *ConflictError.
	CompareAndSet(ctx context.Context, key string, value []byte, expected int64) (int64, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
