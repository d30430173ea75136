// Package cache defines the key-value cache contract the access engine
// fronts its traversal results with, plus an in-process implementation.
// Clients are passed in at construction; there is no package-level singleton.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is the fallback entry lifetime when a caller passes ttl <= 0.
const DefaultTTL = time.Hour

// Client is the cache surface the engine depends on. Implementations carry no
// business logic; a miss is (value "", ok false, err nil), and errors mean the
// backing store itself failed.
type Client interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteMatching drops every entry whose key starts with prefix. Used for
	// coarse invalidation when enumerating exact keys would need a traversal.
	DeleteMatching(ctx context.Context, prefix string) error
}
