package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/frame-dx-server/internal/domain"
)

const (
	defaultMaxItems = 1024
	defaultTTL      = 10 * time.Minute
)

// MemoryCache is an in-process LRU with per-entry expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.DiagnosisResult]
}

// NewMemoryCache creates an LRU holding at most maxItems results for ttl each.
// Non-positive values select the defaults.
func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.DiagnosisResult](maxItems, nil, ttl),
	}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) (*domain.DiagnosisResult, bool) {
	return m.lru.Get(key)
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, result *domain.DiagnosisResult) {
	m.lru.Add(key, result)
}

// Len implements Cache.
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// Purge drops every entry.
func (m *MemoryCache) Purge() {
	m.lru.Purge()
}
