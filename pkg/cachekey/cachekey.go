// Package cachekey derives the cache lookup key and the unlocking secret of
// a registry lookup from its request parameters.
package cachekey

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
)

// Key addresses one cache entry. Signature names the entry and Entropy
// unlocks it. Both are recomputed from the request on every call and are
// never stored or returned to callers.
type Key struct {
	Signature string
	Entropy   string
}

// Derive computes the key for a (document type, document number) pair.
// Signature is the hex SHA-1 of type followed by document; Entropy is the
// hex SHA-256 of the signature followed by type.
func Derive(docType, document string) Key {
	sig := sha1.Sum([]byte(docType + document))
	signature := hex.EncodeToString(sig[:])

	ent := sha256.Sum256([]byte(signature + docType))

	return Key{
		Signature: signature,
		Entropy:   hex.EncodeToString(ent[:]),
	}
}

// String returns the signature only, so a Key can be logged safely.
func (k Key) String() string {
	return k.Signature
}
