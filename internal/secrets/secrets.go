// Package secrets seals marketplace credentials at rest with NaCl secretbox.
package secrets

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrDecrypt is returned when a sealed value is malformed or was sealed with another key.
var ErrDecrypt = errors.New("cannot open sealed value")

// Box seals and opens values with a fixed 32-byte key.
type Box struct {
	key [32]byte
}

// NewBox returns a Box using key.
func NewBox(key [32]byte) *Box {
	return &Box{key: key}
}

// Seal encrypts plaintext. The result is the random nonce followed by the sealed box.
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &b.key), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &b.key)
	if !ok {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
