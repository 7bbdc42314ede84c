package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ae-risk-core/internal/domain"
)

// CacheClient wraps Redis with caching for collaborator report counts
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a new cache client
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CacheClient{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// CachedReportCounts is the stored envelope with expiry metadata.
type CachedReportCounts struct {
	Data      *domain.ReportCounts `json:"data"`
	CachedAt  time.Time            `json:"cached_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// GetReportCounts retrieves cached counts for a product x event pair.
func (c *CacheClient) GetReportCounts(ctx context.Context, product, event string) (*domain.ReportCounts, bool, error) {
	key := c.generateCountKey(product, event)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get report-count cache: %w", err)
	}

	var cached CachedReportCounts
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// SetReportCounts caches counts for a product x event pair.
func (c *CacheClient) SetReportCounts(ctx context.Context, counts *domain.ReportCounts, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	key := c.generateCountKey(counts.Product, counts.Event)

	cached := CachedReportCounts{
		Data:      counts,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal report-count cache data: %w", err)
	}

	return c.redis.Set(ctx, key, jsonData, ttl).Err()
}

// InvalidatePair removes the cached counts for one product x event pair.
func (c *CacheClient) InvalidatePair(ctx context.Context, product, event string) error {
	return c.redis.Del(ctx, c.generateCountKey(product, event)).Err()
}

// Ping checks if the Redis connection is alive
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	return c.redis.Close()
}

// generateCountKey creates a standardized cache key for a pair. Product and
// event strings are opaque and unbounded, so they are hashed.
func (c *CacheClient) generateCountKey(product, event string) string {
	hash := sha256.Sum256([]byte(product + "\x00" + event))
	return fmt.Sprintf("faers:counts:%x", hash[:8])
}
