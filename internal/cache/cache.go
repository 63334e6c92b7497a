// Package cache is a small TTL cache for analytics responses. It is a
// transparent optimization: every cached value is recomputed identically on
// a miss, and keys are derived only from query parameters and the current
// date bucket.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const maxEntries = 256

type Cache struct {
	lru *lru.LRU[string, any]
	ttl time.Duration
}

// New creates a cache with the given TTL. A zero TTL disables caching.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{}
	}
	return &Cache{lru: lru.NewLRU[string, any](maxEntries, nil, ttl), ttl: ttl}
}

func (c *Cache) Get(key string) (any, bool) {
	if c.lru == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *Cache) Set(key string, value any) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, value)
}

// Key joins the endpoint name, its parameters and the current date bucket
// into a cache key.
func Key(parts ...string) string {
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += "|"
		}
		key += p
	}
	return key
}

// DateBucket is today's date component for key derivation, so entries never
// straddle a day boundary.
func DateBucket(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}
