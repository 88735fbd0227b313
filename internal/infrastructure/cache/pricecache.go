package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

const (
	priceListKey      = "prices:list"
	realtimeKeyPrefix = "prices:realtime:"
)

// RealtimeKey identifies one cached realtime quote.
type RealtimeKey struct {
	ProductType string
	Width       string
	Thickness   string
	Date        string
}

func (k RealtimeKey) String() string {
	return realtimeKeyPrefix + strings.Join([]string{
		strings.ToLower(k.ProductType), k.Width, k.Thickness, k.Date,
	}, ":")
}

// ClearResult reports what ClearAll removed.
type ClearResult struct {
	PriceListCleared bool `json:"price_list_cleared"`
	RealtimeCleared  int  `json:"realtime_cleared"`
}

// Stats describes the current cache contents.
type Stats struct {
	PriceListCached     bool  `json:"price_list_cached"`
	PriceListTTLSeconds int64 `json:"price_list_ttl_seconds"`
	RealtimeEntries     int   `json:"realtime_entries"`
	TTLSeconds          int64 `json:"ttl_seconds"`
}

// PriceCache stores converted price payloads as JSON with a fixed TTL.
type PriceCache struct {
	store  *RedisStore
	ttl    time.Duration
	logger logger.Interface
}

func NewPriceCache(store *RedisStore, ttl time.Duration, log logger.Interface) *PriceCache {
	return &PriceCache{store: store, ttl: ttl, logger: log}
}

func (c *PriceCache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// unreadable entries count as misses and get replaced on the next write
		c.logger.Warnw("discarding unreadable cache entry", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (c *PriceCache) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	return c.store.Set(ctx, key, raw, c.ttl)
}

func (c *PriceCache) GetPriceList(ctx context.Context) (*price.PriceList, bool, error) {
	var list price.PriceList
	found, err := c.getJSON(ctx, priceListKey, &list)
	if !found {
		return nil, false, err
	}
	return &list, true, nil
}

func (c *PriceCache) SetPriceList(ctx context.Context, list *price.PriceList) error {
	return c.setJSON(ctx, priceListKey, list)
}

func (c *PriceCache) GetRealtime(ctx context.Context, key RealtimeKey) (*price.RealtimeQuote, bool, error) {
	var quote price.RealtimeQuote
	found, err := c.getJSON(ctx, key.String(), &quote)
	if !found {
		return nil, false, err
	}
	return &quote, true, nil
}

func (c *PriceCache) SetRealtime(ctx context.Context, key RealtimeKey, quote *price.RealtimeQuote) error {
	return c.setJSON(ctx, key.String(), quote)
}

// ClearAll drops the price list and every realtime quote.
func (c *PriceCache) ClearAll(ctx context.Context) (*ClearResult, error) {
	listCleared, err := c.store.Delete(ctx, priceListKey)
	if err != nil {
		return nil, err
	}
	n, err := c.store.DeleteMatching(ctx, realtimeKeyPrefix)
	if err != nil {
		return nil, err
	}
	c.logger.Infow("price cache cleared", "price_list", listCleared, "realtime_entries", n)
	return &ClearResult{PriceListCleared: listCleared, RealtimeCleared: n}, nil
}

func (c *PriceCache) Stats(ctx context.Context) (*Stats, error) {
	ttl, err := c.store.TTL(ctx, priceListKey)
	if err != nil {
		return nil, err
	}
	n, err := c.store.CountMatching(ctx, realtimeKeyPrefix)
	if err != nil {
		return nil, err
	}
	return &Stats{
		PriceListCached:     ttl > 0,
		PriceListTTLSeconds: int64(ttl.Seconds()),
		RealtimeEntries:     n,
		TTLSeconds:          int64(c.ttl.Seconds()),
	}, nil
}
