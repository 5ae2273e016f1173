// Package store defines the cart persistence port and its implementations.
//
// The store is a plain key-addressed blob store with sliding expiration. It
// deliberately exposes only independent Get and Set: callers own the
// read-modify-write cycle and must serialize concurrent mutations themselves.
package store

import (
	"context"
	"time"
)

// CartStore is the persistence capability injected into the mutation engine.
// Implementations report connectivity failures as plain errors; the engine
// wraps them into the store_unavailable taxonomy.
type CartStore interface {
	// Get returns the stored bytes for key. found is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set upserts key and refreshes its expiry window.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key, reporting whether it existed.
	Delete(ctx context.Context, key string) (existed bool, err error)

	// Increment atomically bumps a numeric counter key and returns the new
	// value. Used only for anonymous-identity allocation.
	Increment(ctx context.Context, key string) (int64, error)
}
