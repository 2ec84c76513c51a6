// Package memory provides an in-process page cache for single-instance
// deployments.
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

// PageCache keeps rendered pages in memory
type PageCache struct {
	cache *cache.Cache
}

func NewPageCache(defaultTTL, cleanupInterval time.Duration) *PageCache {
	return &PageCache{cache: cache.New(defaultTTL, cleanupInterval)}
}

// Get returns a shallow copy of the cached page.
func (c *PageCache) Get(_ context.Context, biositeID string) (*domain.Page, bool, error) {
	x, found := c.cache.Get(biositeID)
	if !found {
		return nil, false, nil
	}
	page := x.(domain.Page)
	return &page, true, nil
}

func (c *PageCache) Set(_ context.Context, biositeID string, page *domain.Page, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	c.cache.Set(biositeID, *page, ttl)
	return nil
}

func (c *PageCache) Invalidate(_ context.Context, biositeID string) error {
	c.cache.Delete(biositeID)
	return nil
}

var _ ports.PageCache = (*PageCache)(nil)
