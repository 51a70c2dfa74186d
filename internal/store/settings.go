package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
)

// SecretKeySize is the length of the key used to seal marketplace credentials.
const SecretKeySize = 32

// GetSecretKey returns the sealing key, generating and storing one on first use.
// A create-only write followed by a re-read keeps concurrent first runs on the same key.
func GetSecretKey(ctx context.Context, kv KV) ([SecretKeySize]byte, error) {
	var key [SecretKeySize]byte

	candidate := make([]byte, SecretKeySize)
	if _, err := rand.Read(candidate); err != nil {
		return key, fmt.Errorf("generating secret key: %w", err)
	}

	if _, err := kv.CompareAndSet(ctx, KeySecretKey, candidate, 0); err != nil && !errors.Is(err, ErrConflict) {
		return key, fmt.Errorf("storing secret key: %w", err)
	}

	stored, _, err := kv.Get(ctx, KeySecretKey)
	if err != nil {
		return key, fmt.Errorf("reading secret key: %w", err)
	}
	if len(stored) != SecretKeySize {
		return key, fmt.Errorf("secret key has %d bytes, want %d", len(stored), SecretKeySize)
	}
	copy(key[:], stored)
	return key, nil
}
