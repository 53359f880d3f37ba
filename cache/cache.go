// Package cache stores raw API payloads for a short time so repeated loads of
// the same symbol do not refetch.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrMiss = errors.New("cache: key not found")

// Cache stores opaque payloads by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Key builds the key for a payload kind and symbol.
func Key(kind, symbol string) string {
	return kind + ":" + symbol
}
