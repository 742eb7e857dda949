package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

const defaultTTL = 24 * time.Hour

// ProductCache keeps products as JSON under product:{id}. Writes go through
// the catalog first; the cache only ever holds copies.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ProductCache{client: client, ttl: ttl}
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

func (c *ProductCache) Get(ctx context.Context, id string) (*models.Product, bool, error) {
	raw, err := c.client.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "read cached product")
	}

	var product models.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, false, errors.Wrapf(err, "decode cached product %s", id)
	}
	return &product, true, nil
}

func (c *ProductCache) Set(ctx context.Context, product *models.Product) error {
	payload, err := json.Marshal(product)
	if err != nil {
		return errors.Wrapf(err, "encode product %s", product.ID.Hex())
	}

	id := product.ID.Hex()
	if err := c.client.Set(ctx, productKey(id), payload, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "cache product %s", id)
	}
	return nil
}

func (c *ProductCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, productKey(id)).Err(); err != nil {
		return errors.Wrapf(err, "invalidate product %s", id)
	}
	return nil
}
