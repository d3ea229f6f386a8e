package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize     = 32
	nonceSize   = 24
	sealedLabel = "v1:"
)

// ErrMalformedSecret signals a sealed value that cannot be opened.
var ErrMalformedSecret = errors.New("malformed sealed secret")

// Box seals short secrets (OAuth tokens) for storage. A nil *Box stores values
// as-is, which keeps local development free of key management.
type Box struct {
	key [keySize]byte
}

// NewBox parses a base64-encoded 32 byte key. An empty key yields a nil Box.
func NewBox(encodedKey string) (*Box, error) {
	encodedKey = strings.TrimSpace(encodedKey)
	if encodedKey == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode token encryption key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("token encryption key must be %d bytes, got %d", keySize, len(raw))
	}
	b := &Box{}
	copy(b.key[:], raw)
	return b, nil
}

// Seal encrypts plaintext and returns a printable, versioned value.
func (b *Box) Seal(plaintext string) (string, error) {
	if b == nil || plaintext == "" {
		return plaintext, nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return sealedLabel + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values without the version label are returned unchanged
// so rows written before encryption was enabled stay readable.
func (b *Box) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedLabel) {
		return value, nil
	}
	if b == nil {
		return "", fmt.Errorf("%w: no key configured", ErrMalformedSecret)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedLabel))
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformedSecret
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrMalformedSecret
	}
	return string(plain), nil
}
