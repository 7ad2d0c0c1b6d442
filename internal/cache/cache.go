// Package cache stores opaque byte blobs with an expiry. The catalog keeps its
// last successfully loaded snapshot here so an outage of the live store can be
// bridged with real data instead of the bundled offline catalog.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/additivelens/additivelens/internal/model"
)

const keyPrefix = "additivelens:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from the parts describing a catalog source,
// e.g. the source kind and its location
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + hex.EncodeToString(hash[:16])
}

// New builds the snapshot cache described by cfg. It returns nil when caching
// is disabled, a memory cache when no directory is set, and a memory+disk
// layered cache otherwise.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.TTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.TTL, cfg.Dir, cfg.TTL)
}
