package attribution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contwre/leadflow/internal/domain"
)

const (
	snapshotKeyPrefix = "leadflow:attr:"
	visitedKeyPrefix  = "leadflow:visited:"
)

// RedisRepository stores attribution snapshots in Redis with a TTL matching
// the visitor session lifetime. Keys expire together with the session, which
// mirrors the ephemeral semantics the front-end used to get from
// sessionStorage.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository creates a Redis-backed repository. ttl bounds the
// visitor session; every write refreshes it.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func (r *RedisRepository) Get(ctx context.Context, sessionID string) (*domain.AttributionSnapshot, error) {
	data, err := r.client.Get(ctx, snapshotKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var snap domain.AttributionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// A corrupt blob is unrecoverable; treat as absent so capture
		// can rebuild it.
		return nil, ErrNotFound
	}
	return &snap, nil
}

func (r *RedisRepository) Put(ctx context.Context, sessionID string, snap *domain.AttributionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKeyPrefix+sessionID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisRepository) Visited(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, visitedKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRepository) MarkVisited(ctx context.Context, sessionID string) error {
	if err := r.client.Set(ctx, visitedKeyPrefix+sessionID, "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping verifies connectivity. Called once at startup so a misconfigured
// Redis degrades to the in-memory store instead of failing every request.
func (r *RedisRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}
