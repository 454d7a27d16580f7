// Package cache stores lookup results encrypted at rest. Entries are
// addressed by a signature and sealed with the lookup's entropy; backends
// only ever see ciphertext.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iziplay/saime-api/pkg/vault"
)

// ErrNotFound is returned when no live entry exists for a signature.
var ErrNotFound = errors.New("cache entry not found")

// Blobs is a raw key/value backend for sealed payloads.
type Blobs interface {
	Get(ctx context.Context, signature string) ([]byte, error)
	Put(ctx context.Context, signature string, blob []byte) error
}

// Stats describes what a backend currently holds.
type Stats struct {
	Backend   string    `json:"backend"`
	Entries   int64     `json:"entries"`
	LastWrite time.Time `json:"lastWrite,omitzero"`
}

// StatsReporter is implemented by backends able to describe their content.
type StatsReporter interface {
	Stats(ctx context.Context) (Stats, error)
}

// Encrypted reads and writes JSON payloads through a Blobs backend.
type Encrypted struct {
	blobs Blobs
	vault *vault.Vault
}

// NewEncrypted wraps blobs, sealing every payload with v.
func NewEncrypted(blobs Blobs, v *vault.Vault) *Encrypted {
	return &Encrypted{blobs: blobs, vault: v}
}

// Read returns the payload stored under signature, unlocked with entropy.
func (e *Encrypted) Read(ctx context.Context, signature, entropy string) ([]byte, error) {
	blob, err := e.blobs.Get(ctx, signature)
	if err != nil {
		return nil, err
	}
	payload, err := e.vault.Open(entropy, signature, blob)
	if err != nil {
		return nil, fmt.Errorf("open cache entry: %w", err)
	}
	return payload, nil
}

// Write seals payload with entropy and stores it under signature.
func (e *Encrypted) Write(ctx context.Context, signature string, payload []byte, entropy string) error {
	blob, err := e.vault.Seal(entropy, signature, payload)
	if err != nil {
		return fmt.Errorf("seal cache entry: %w", err)
	}
	if err := e.blobs.Put(ctx, signature, blob); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Stats forwards to the backend when it can report.
func (e *Encrypted) Stats(ctx context.Context) (Stats, error) {
	if r, ok := e.blobs.(StatsReporter); ok {
		return r.Stats(ctx)
	}
	return Stats{}, errors.ErrUnsupported
}

// Backend returns the wrapped blob store.
func (e *Encrypted) Backend() Blobs {
	return e.blobs
}
