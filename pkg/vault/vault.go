// Package vault seals cache payloads with a key derived from the lookup's
// entropy, so an entry can only be read back by a request for the same
// document.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	version    byte = 1
	infoPrefix      = "saime-cache/v1|"
)

var (
	// ErrDecrypt is returned for tampered blobs and for the wrong entropy.
	ErrDecrypt = errors.New("vault: cannot decrypt payload")
	ErrNoKey   = errors.New("vault: entropy is required")
)

// Vault seals and opens payloads. The optional server secret is mixed into
// every derived key as HKDF salt.
type Vault struct {
	secret []byte
}

// New creates a Vault. secret may be empty.
func New(secret []byte) *Vault {
	return &Vault{secret: append([]byte(nil), secret...)}
}

// Seal encrypts plaintext under entropy. label binds the blob to its cache
// address: opening it under another label fails.
func (v *Vault) Seal(entropy, label string, plaintext []byte) ([]byte, error) {
	aead, err := v.aead(entropy, label)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	blob[0] = version
	nonce := blob[1:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("vault: generate nonce: %w", err)
	}

	return aead.Seal(blob, nonce, plaintext, []byte(label)), nil
}

// Open decrypts a blob produced by Seal.
func (v *Vault) Open(entropy, label string, blob []byte) ([]byte, error) {
	aead, err := v.aead(entropy, label)
	if err != nil {
		return nil, err
	}

	if len(blob) < 1+aead.NonceSize()+aead.Overhead() || blob[0] != version {
		return nil, ErrDecrypt
	}
	nonce := blob[1 : 1+aead.NonceSize()]

	plaintext, err := aead.Open(nil, nonce, blob[1+aead.NonceSize():], []byte(label))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func (v *Vault) aead(entropy, label string) (cipher.AEAD, error) {
	if entropy == "" {
		return nil, ErrNoKey
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(entropy), v.secret, []byte(infoPrefix+label))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}

	return chacha20poly1305.NewX(key)
}
