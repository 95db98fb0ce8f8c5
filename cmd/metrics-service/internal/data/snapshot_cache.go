package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"propfolio/cmd/metrics-service/internal/conf"
	"propfolio/cmd/metrics-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const latestSnapshotKey = "metrics:snapshot:latest"

// SnapshotCache 最新快照 Redis 缓存
// 只服务 GET /latest 读路径；计算路径从不读缓存，幂等性不受影响
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient 创建 Redis 客户端
func NewRedisClient(config *conf.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// NewSnapshotCache 创建快照缓存
func NewSnapshotCache(client *redis.Client, config *conf.Config) domain.SnapshotCache {
	return &SnapshotCache{
		client: client,
		ttl:    config.Metrics.LatestCacheTTL,
	}
}

// GetLatest 读取缓存的最新快照
func (c *SnapshotCache) GetLatest(ctx context.Context) (*domain.MetricsSnapshot, error) {
	data, err := c.client.Get(ctx, latestSnapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}

	var snapshot domain.MetricsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}

	return &snapshot, nil
}

// SetLatest 写入最新快照
func (c *SnapshotCache) SetLatest(ctx context.Context, snapshot *domain.MetricsSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, latestSnapshotKey, data, c.ttl).Err()
}
