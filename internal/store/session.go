package store

import (
	"context"
	"fmt"
)

// IsLoggedIn reports whether the session flag is set.
func IsLoggedIn(ctx context.Context, kv KV) (bool, error) {
	data, _, err := kv.Get(ctx, KeyLoggedIn)
	if err != nil {
		return false, fmt.Errorf("reading session: %w", err)
	}
	return string(data) == "true", nil
}

// Login sets the session flag.
func Login(ctx context.Context, kv KV) error {
	if _, err := kv.Put(ctx, KeyLoggedIn, []byte("true")); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	return nil
}

// Logout clears the session flag.
func Logout(ctx context.Context, kv KV) error {
	if err := kv.Delete(ctx, KeyLoggedIn); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}
