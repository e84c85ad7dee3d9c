package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"gos_landing/database"
)

// RateLimitConfig конфигурация rate limiting
type RateLimitConfig struct {
	Name         string                    // Префикс ключа (имя группы маршрутов)
	Requests     int                       // Количество запросов
	Window       time.Duration             // Временное окно
	KeyGenerator func(*gin.Context) string // Генератор ключей
}

// DefaultKeyGenerator генерирует ключ на основе IP адреса
func DefaultKeyGenerator(c *gin.Context) string {
	return c.ClientIP()
}

// UserKeyGenerator генерирует ключ на основе пользователя
func UserKeyGenerator(c *gin.Context) string {
	if id, ok := c.Get("user_id"); ok {
		return fmt.Sprintf("user:%v", id)
	}
	return c.ClientIP()
}

// RateLimit создает middleware для ограничения частоты запросов.
// Без Redis (client == nil) запросы не ограничиваются.
func RateLimit(client *redis.Client, config RateLimitConfig) gin.HandlerFunc {
	if config.KeyGenerator == nil {
		config.KeyGenerator = DefaultKeyGenerator
	}

	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		key := database.GenerateCacheKey("rate_limit", config.Name+":"+config.KeyGenerator(c))
		allowed, current, err := database.RateLimitCheck(c.Request.Context(), client, key, int64(config.Requests), config.Window)
		if err != nil {
			// В случае ошибки Redis пропускаем запрос
			zap.L().Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(config.Requests) - current
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status": "error",
				"error":  "Rate limit exceeded",
				"message": fmt.Sprintf("Too many requests. Limit: %d requests per %v",
					config.Requests, config.Window),
			})
			return
		}

		c.Next()
	}
}

// PublicRateLimit ограничение для публичных маршрутов визитов и кликов
func PublicRateLimit(client *redis.Client, requests int, window time.Duration) gin.HandlerFunc {
	return RateLimit(client, RateLimitConfig{
		Name:         "public",
		Requests:     requests,
		Window:       window,
		KeyGenerator: DefaultKeyGenerator,
	})
}

// AuthRateLimit ограничение для выдачи токенов
func AuthRateLimit(client *redis.Client) gin.HandlerFunc {
	return RateLimit(client, RateLimitConfig{
		Name:         "auth",
		Requests:     5,
		Window:       time.Minute,
		KeyGenerator: DefaultKeyGenerator,
	})
}

// UserRateLimit ограничение для маршрутов с токеном: счетчик на пользователя.
// Ставится после RequireAuth.
func UserRateLimit(client *redis.Client, requests int, window time.Duration) gin.HandlerFunc {
	return RateLimit(client, RateLimitConfig{
		Name:         "user",
		Requests:     requests,
		Window:       window,
		KeyGenerator: UserKeyGenerator,
	})
}
