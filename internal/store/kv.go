// Package store provides the persistent key-value storage behind the
// delivery list, the package snapshots, and the cached carrier tokens.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("key not found")

// KV is the key-value port all persistent state goes through. Set replaces
// the stored value wholesale; a TTL of 0 means no expiration.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
