package cache

import (
	"context"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Memory is an in-process Client backed by a TTL cache. Each replica holds
// its own instance; cross-replica invalidation rides the queue fan-out.
type Memory struct {
	items *ttlcache.Cache[string, string]
}

type MemoryParams struct {
	// TTL applied when Set is called with ttl <= 0. Defaults to DefaultTTL.
	TTL time.Duration
}

func NewMemory(params MemoryParams) *Memory {
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	items := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go items.Start()
	return &Memory{items: items}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	item := m.items.Get(key)
	if item == nil || item.IsExpired() {
		return "", false, nil
	}
	return item.Value(), true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	m.items.Set(key, value, ttl)
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		m.items.Delete(key)
	}
	return nil
}

func (m *Memory) DeleteMatching(ctx context.Context, prefix string) error {
	var matched []string
	for _, key := range m.items.Keys() {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		m.items.Delete(key)
	}
	return nil
}

// Len reports live entries, expired ones excluded lazily by the janitor.
func (m *Memory) Len() int {
	return m.items.Len()
}

// Stop shuts down the expiration janitor.
func (m *Memory) Stop() {
	m.items.Stop()
}
