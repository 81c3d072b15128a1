// Package cache stores classification results keyed by the record
// description, so re-runs over overlapping material files skip the
// remote call for rows already classified.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for result caching.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key for a record description. Descriptions carry
// arbitrary user text, so they are hashed rather than embedded.
func Key(description string) string {
	sum := sha256.Sum256([]byte(description))
	return "taxon:v1:" + hex.EncodeToString(sum[:])
}
