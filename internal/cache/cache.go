package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Absent is the value stored for images that carry no payload
const Absent = "\x00sdimg:absent"

// Cache maps image content hashes to extracted payloads
type Cache interface {
	// Get returns the cached value; hit is false when nothing is cached for key
	Get(ctx context.Context, key string) (value string, hit bool, err error)
	Set(ctx context.Context, key string, value string) error
	Close() error
}

// Key derives the cache key for image bytes
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
