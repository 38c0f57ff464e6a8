package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/momentum/backend/internal/domain/metering"
	"github.com/momentum/backend/internal/domain/shared"
	"github.com/momentum/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// QuotaCache caches quota snapshots for the read-only usage endpoint so
// dashboard polling does not hit the database on every request. The cache is
// never consulted on the admission path; reconciliation invalidates it.
type QuotaCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewQuotaCache creates a Redis-backed quota snapshot cache
func NewQuotaCache(cfg *config.RedisConfig) (*QuotaCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &QuotaCache{
		client:    client,
		keyPrefix: "quota:snapshot:",
		ttl:       cfg.CacheTTL,
	}, nil
}

// NewQuotaCacheWithClient creates a cache with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewQuotaCacheWithClient(client *redis.Client, ttl time.Duration) *QuotaCache {
	return &QuotaCache{
		client:    client,
		keyPrefix: "quota:snapshot:",
		ttl:       ttl,
	}
}

type quotaSnapshot struct {
	UserID      string    `json:"user_id"`
	PeriodStart time.Time `json:"period_start"`
	Used        int64     `json:"used"`
	Limit       int64     `json:"limit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *QuotaCache) key(userID string, periodStart time.Time) string {
	return c.keyPrefix + userID + ":" + periodStart.UTC().Format("2006-01")
}

// Get returns the cached snapshot for (userID, periodStart), or
// shared.ErrNotFound on a cache miss.
func (c *QuotaCache) Get(ctx context.Context, userID string, periodStart time.Time) (*metering.TokenQuota, error) {
	data, err := c.client.Get(ctx, c.key(userID, periodStart)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read quota snapshot: %w", err)
	}

	var snap quotaSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Treat a corrupt entry as a miss; it will be overwritten.
		return nil, shared.ErrNotFound
	}

	return &metering.TokenQuota{
		UserID:      snap.UserID,
		PeriodStart: snap.PeriodStart,
		Used:        snap.Used,
		Limit:       snap.Limit,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}, nil
}

// Set stores a snapshot with the configured TTL
func (c *QuotaCache) Set(ctx context.Context, quota *metering.TokenQuota) error {
	data, err := json.Marshal(quotaSnapshot{
		UserID:      quota.UserID,
		PeriodStart: quota.PeriodStart,
		Used:        quota.Used,
		Limit:       quota.Limit,
		CreatedAt:   quota.CreatedAt,
		UpdatedAt:   quota.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode quota snapshot: %w", err)
	}

	if err := c.client.Set(ctx, c.key(quota.UserID, quota.PeriodStart), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store quota snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot for (userID, periodStart). Called after
// reconciliation so stale usage is bounded by a single in-flight request.
func (c *QuotaCache) Invalidate(ctx context.Context, userID string, periodStart time.Time) error {
	if err := c.client.Del(ctx, c.key(userID, periodStart)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate quota snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (c *QuotaCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *QuotaCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
