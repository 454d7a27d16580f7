package database

import (
	"time"
)

type Model struct {
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// CacheEntry is one sealed lookup result. Payload is ciphertext; the
// signature is a digest, so the table holds no readable identity data.
type CacheEntry struct {
	Model

	Signature string `gorm:"primaryKey;size:40"`
	Payload   []byte `gorm:"type:bytea;not null"`
}
