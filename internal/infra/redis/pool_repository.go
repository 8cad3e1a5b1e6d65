package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"brawl-service/internal/domain"
)

// PoolLoader fetches pool content from a backing store (e.g., Postgres).
type PoolLoader interface {
	LoadPool(ctx context.Context, code string) (domain.Pool, error)
}

// PoolRepository caches whole pool snapshots in Redis and falls back to a
// loader on cache miss. A snapshot is stored as one JSON value:
// SET pool:{code}:snapshot {json} EX {ttl}
// Matches need the full ordered question list at creation time, so unlike
// a per-question answer cache the snapshot is cached as a single document.
type PoolRepository struct {
	client *redis.Client
	loader PoolLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewPoolRepository(client *redis.Client, loader PoolLoader, ttl time.Duration) *PoolRepository {
	return &PoolRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (r *PoolRepository) GetPool(ctx context.Context, code string) (domain.Pool, error) {
	key := r.snapshotKey(code)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var pool domain.Pool
		if err := json.Unmarshal(raw, &pool); err == nil {
			return pool, nil
		}
	}

	result, err, _ := r.sf.Do(code, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			var pool domain.Pool
			if err := json.Unmarshal(raw, &pool); err == nil {
				return pool, nil
			}
		}

		pool, err := r.loader.LoadPool(ctx, code)
		if err != nil {
			return domain.Pool{}, err
		}

		if raw, err := json.Marshal(pool); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return pool, nil
	})
	if err != nil {
		return domain.Pool{}, err
	}
	return result.(domain.Pool), nil
}

func (r *PoolRepository) snapshotKey(code string) string {
	return "pool:" + code + ":snapshot"
}

func (r *PoolRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
