package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"gos_landing/database"
)

// CacheService предоставляет методы для кэширования агрегатов статистики.
// Без Redis все операции становятся no-op.
type CacheService struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCacheService создает новый экземпляр CacheService
func NewCacheService(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// Enabled сообщает, подключен ли Redis и включено ли кэширование
func (cs *CacheService) Enabled() bool {
	return cs != nil && cs.redis != nil && cs.ttl > 0
}

// GetJSON читает значение из кэша. Возвращает false при промахе или ошибке Redis.
func (cs *CacheService) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if !cs.Enabled() {
		return false
	}
	err := database.CacheGetJSON(ctx, cs.redis, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, redis.Nil) {
		cs.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

// SetJSON сохраняет значение в кэш на заданный TTL
func (cs *CacheService) SetJSON(ctx context.Context, key string, value interface{}) {
	if !cs.Enabled() {
		return
	}
	if err := database.CacheSetJSON(ctx, cs.redis, key, value, cs.ttl); err != nil {
		cs.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateStats удаляет все закэшированные сводки статистики
func (cs *CacheService) InvalidateStats(ctx context.Context) {
	if !cs.Enabled() {
		return
	}
	if err := database.CacheDelPattern(ctx, cs.redis, database.GenerateCacheKey("stats", "*")); err != nil {
		cs.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}
