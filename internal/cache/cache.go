// Package cache provides the bounded in-process cache used for read-heavy
// derived views.
package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	Close()
}

// Ristretto is a Cache backed by a TinyLFU admission cache. Every entry costs
// 1, so maxItems bounds the number of entries.
type Ristretto[T any] struct {
	c   *ristretto.Cache[string, T]
	ttl time.Duration
}

// NewRistretto creates a cache holding at most maxItems entries, each living
// at most ttl (0 disables expiry).
func NewRistretto[T any](maxItems int64, ttl time.Duration) (*Ristretto[T], error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxItems)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, T]{
		NumCounters: maxItems * 10, // number of keys to track frequency of
		MaxCost:     maxItems,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	return &Ristretto[T]{c: c, ttl: ttl}, nil
}

func (r *Ristretto[T]) Get(key string) (T, bool) { return r.c.Get(key) }

// Set is asynchronous; the value may be dropped by the admission policy.
func (r *Ristretto[T]) Set(key string, data T) {
	r.c.SetWithTTL(key, data, 1, r.ttl)
}

func (r *Ristretto[T]) Delete(key string) { r.c.Del(key) }

// Wait blocks until pending Sets are applied.
func (r *Ristretto[T]) Wait() { r.c.Wait() }

func (r *Ristretto[T]) Close() { r.c.Close() }

// Noop never stores anything.
type Noop[T any] struct{}

func (Noop[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}
func (Noop[T]) Set(string, T) {}
func (Noop[T]) Delete(string) {}
func (Noop[T]) Close()        {}
