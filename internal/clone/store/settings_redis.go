package store

import (
	"context"
	stderrors "errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/knowledge-clone/pkg/options/settings"
)

// RedisSettings 将设置保存在一个 Redis 哈希中，多个实例可共享。
type RedisSettings struct {
	client goredis.UniversalClient
	key    string
}

var _ SettingsStore = (*RedisSettings)(nil)

// NewRedisSettings 创建 Redis 设置存储，key 为哈希键名。
func NewRedisSettings(client goredis.UniversalClient, key string) *RedisSettings {
	return &RedisSettings{client: client, key: key}
}

func (s *RedisSettings) Name() string { return settings.BackendRedis }

func (s *RedisSettings) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key, field).Result()
	if stderrors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", field, err)
	}
	return v, true, nil
}

func (s *RedisSettings) Set(ctx context.Context, field, value string) error {
	if err := s.client.HSet(ctx, s.key, field, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", field, err)
	}
	return nil
}

// SetMany 用一条 HSET 写入全部字段。
func (s *RedisSettings) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]any, 0, 2*len(values))
	for field, value := range values {
		args = append(args, field, value)
	}
	if err := s.client.HSet(ctx, s.key, args...).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *RedisSettings) Delete(ctx context.Context, field string) error {
	if err := s.client.HDel(ctx, s.key, field).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", field, err)
	}
	return nil
}

