package storage

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// The bearer token is the only secret the client persists, so it is sealed
// at rest: scrypt derives the key from the config secret with a per-seal
// salt, secretbox provides the authenticated encryption.

const (
	saltLen  = 16
	nonceLen = 24
)

var errTokenSealed = errors.New("stored token cannot be opened (wrong secret or corrupt cache)")

func deriveKey(secret string, salt []byte) (*[32]byte, error) {
	raw, err := scrypt.Key([]byte(secret), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token key: %w", err)
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

func sealToken(secret, token string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := deriveKey(secret, salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	blob := make([]byte, 0, saltLen+nonceLen+len(token)+secretbox.Overhead)
	blob = append(blob, salt...)
	blob = append(blob, nonce[:]...)
	return secretbox.Seal(blob, []byte(token), &nonce, key), nil
}

func openToken(secret string, blob []byte) (string, error) {
	if len(blob) < saltLen+nonceLen+secretbox.Overhead {
		return "", errTokenSealed
	}

	key, err := deriveKey(secret, blob[:saltLen])
	if err != nil {
		return "", err
	}

	var nonce [nonceLen]byte
	copy(nonce[:], blob[saltLen:saltLen+nonceLen])

	token, ok := secretbox.Open(nil, blob[saltLen+nonceLen:], &nonce, key)
	if !ok {
		return "", errTokenSealed
	}
	return string(token), nil
}
