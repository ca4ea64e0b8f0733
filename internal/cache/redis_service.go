package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisService Redis缓存服务
// client为nil时所有写入静默跳过，读取返回未命中，便于无Redis环境下降级运行
type RedisService struct {
	client *redis.Client
}

// NewRedisService 创建Redis服务实例
func NewRedisService(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

// SetCache 设置缓存，value会被JSON序列化
func (s *RedisService) SetCache(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.client == nil {
		return nil // Redis未配置时静默跳过
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return s.client.SetEx(ctx, key, data, ttl).Err()
}

// GetCache 获取缓存并反序列化到dest，未命中返回false
func (s *RedisService) GetCache(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.client == nil {
		return false, nil
	}

	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// DeleteCache 删除缓存
func (s *RedisService) DeleteCache(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}
