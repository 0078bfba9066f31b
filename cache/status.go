// Package cache mirrors job status transitions into Redis so sidecar
// tooling can watch jobs without polling the gateway. The in-memory
// job table stays authoritative; the mirror is write-only and TTL'd.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"videoGateway/models"
)

const (
	statusKeyPrefix = "job:status:"
	statusTTL       = 10 * time.Minute
)

// StatusCache methods are nil-safe: a nil receiver means no Redis is
// configured and every call is a no-op.
type StatusCache struct {
	client *redis.Client
}

func Connect(addr string) (*StatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &StatusCache{client: client}, nil
}

func (c *StatusCache) Set(ctx context.Context, jobID string, status models.JobStatus) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, statusKeyPrefix+jobID, string(status), statusTTL).Err()
}

func (c *StatusCache) Delete(ctx context.Context, jobID string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, statusKeyPrefix+jobID).Err()
}

func (c *StatusCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
