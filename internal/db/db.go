// Package db defines the key-value contract used for embedding caching and
// the sentinel errors shared by its drivers.
package db

import (
	"context"
	"time"
)

// Store is the key-value facade a cache driver provides.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVItem is a single key/value pair for pipelined writes.
type KVItem struct {
	Key   string
	Value []byte
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// GetMulti returns one value per key, nil where the key is missing.
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetMultiWithTTL writes all items in one round-trip. ttl <= 0 means no expiry.
	SetMultiWithTTL(ctx context.Context, items []KVItem, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
