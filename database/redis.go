package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"gos_landing/config"
)

// ErrRedisDisabled возвращается кэш-хелперами, когда Redis не подключен
var ErrRedisDisabled = errors.New("redis is not connected")

// InitRedis инициализирует подключение к Redis
func InitRedis(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		zap.L().Info("redis disabled, cache and rate limiting are off")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.MaxConns,
		MinIdleConns: 2,
		DialTimeout:  cfg.Redis.Timeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  300 * time.Second,
	})

	// Проверяем подключение
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	zap.L().Info("connected to redis", zap.String("addr", cfg.GetRedisAddr()))
	return client, nil
}

// CacheSetJSON сохраняет JSON объект в кэш
func CacheSetJSON(ctx context.Context, client *redis.Client, key string, value interface{}, ttl time.Duration) error {
	if client == nil {
		return ErrRedisDisabled
	}
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка сериализации JSON: %w", err)
	}
	return client.Set(ctx, key, string(jsonData), ttl).Err()
}

// CacheGetJSON получает JSON объект из кэша
func CacheGetJSON(ctx context.Context, client *redis.Client, key string, dest interface{}) error {
	if client == nil {
		return ErrRedisDisabled
	}
	jsonData, err := client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(jsonData), dest); err != nil {
		return fmt.Errorf("ошибка десериализации JSON: %w", err)
	}

	return nil
}

// CacheDelPattern удаляет все ключи по шаблону
func CacheDelPattern(ctx context.Context, client *redis.Client, pattern string) error {
	if client == nil {
		return nil
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return client.Del(ctx, keys...).Err()
	}
	return nil
}

// GenerateCacheKey генерирует ключ кэша
func GenerateCacheKey(prefix string, suffix string) string {
	return fmt.Sprintf("gos:%s:%s", prefix, suffix)
}

// RateLimitCheck увеличивает счетчик запросов и сообщает, укладывается ли он в лимит
func RateLimitCheck(ctx context.Context, client *redis.Client, key string, limit int64, window time.Duration) (bool, int64, error) {
	if client == nil {
		return true, 0, nil
	}

	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}

	// TTL выставляется только первым запросом окна
	if count == 1 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return false, count, err
		}
	}

	return count <= limit, count, nil
}
