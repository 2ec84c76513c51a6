// Package rediscache provides a Redis-backed page cache shared between server
// instances.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

const keyPrefix = "page:"

// PageCache stores rendered pages as JSON under "page:<biosite id>"
type PageCache struct {
	client *redis.Client
	prefix string
}

// NewPageCache connects to redisURL and verifies the connection
func NewPageCache(redisURL string) (*PageCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "connect to redis")
	}

	return NewPageCacheWithClient(client), nil
}

// NewPageCacheWithClient creates a cache from an existing client
func NewPageCacheWithClient(client *redis.Client) *PageCache {
	return &PageCache{client: client, prefix: keyPrefix}
}

func (c *PageCache) key(biositeID string) string {
	return c.prefix + biositeID
}

func (c *PageCache) Get(ctx context.Context, biositeID string) (*domain.Page, bool, error) {
	data, err := c.client.Get(ctx, c.key(biositeID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get page")
	}

	var page domain.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false, errors.Wrap(err, "unmarshal page")
	}
	return &page, true, nil
}

func (c *PageCache) Set(ctx context.Context, biositeID string, page *domain.Page, ttl time.Duration) error {
	data, err := json.Marshal(page)
	if err != nil {
		return errors.Wrap(err, "marshal page")
	}
	return errors.Wrap(c.client.Set(ctx, c.key(biositeID), data, ttl).Err(), "set page")
}

func (c *PageCache) Invalidate(ctx context.Context, biositeID string) error {
	return errors.Wrap(c.client.Del(ctx, c.key(biositeID)).Err(), "invalidate page")
}

func (c *PageCache) Close() error {
	return c.client.Close()
}

var _ ports.PageCache = (*PageCache)(nil)
