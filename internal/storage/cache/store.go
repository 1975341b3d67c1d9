package cache

import (
	"context"
	"time"
)

// Store is the raw key/value backend behind a Coordinator. Only the Coordinator uses it.
type Store interface {
	// Get returns the value stored under key. A missing or expired key is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl. A non-positive ttl stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Generation returns the counter stored under genKey, 0 when it was never incremented.
	Generation(ctx context.Context, genKey string) (int64, error)
	// IncrGeneration atomically increments the counter under genKey and returns the new value.
	IncrGeneration(ctx context.Context, genKey string) (int64, error)
	// SetIfGeneration stores value under key like Set, but only while the counter under
	// genKey still equals gen. The check and the write are atomic.
	SetIfGeneration(ctx context.Context, genKey string, gen int64, key string, value []byte, ttl time.Duration) (bool, error)

	Close() error
}
