// package cache provides durable storage for the serialized identity blob.
//
// A [Store] is a tiny key/value interface. The session controller only ever uses a single key ([IdentityKey]);
// absence of that key means "unresolved", not "unauthenticated".
package cache

import (
	"errors"
	"fmt"

	"github.com/desertthunder/shffl/internal/shared"
)

// IdentityKey is the fixed key the identity blob is stored under.
const IdentityKey = "user"

// ErrNotFound is returned by [Store.Get] when the key is absent.
var ErrNotFound = errors.New("cache entry not found")

// Store holds raw byte blobs by key.
type Store interface {
	Get(key string) ([]byte, error) // Get returns [ErrNotFound] when the key is absent
	Set(key string, value []byte) error
	Delete(key string) error // Delete is a no-op for absent keys
	Close() error
}

// Open returns the [Store] selected by the cache config.
func Open(cfg shared.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLiteStore(cfg.Path)
	case "bolt":
		return NewBoltStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown cache driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}
