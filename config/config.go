package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// ErrMissing возвращается, когда обязательная переменная окружения не задана
var ErrMissing = errors.New("required configuration is missing")

// Config содержит всю конфигурацию приложения
type Config struct {
	// Основные настройки приложения
	App AppConfigStruct `json:"app"`

	// База данных
	Database DatabaseConfig `json:"database"`

	// Redis
	Redis RedisConfig `json:"redis"`

	// JWT (токены для /api/location-stats/)
	JWT JWTConfig `json:"jwt"`

	// CORS
	CORS CORSConfig `json:"cors"`

	// Безопасность
	Security SecurityConfig `json:"security"`

	// Логирование
	Logging LoggingConfig `json:"logging"`

	// Загружаемые изображения
	Media MediaConfig `json:"media"`

	// Telegram бот
	Bot BotConfig `json:"bot"`
}

type AppConfigStruct struct {
	Env      string `json:"env"`
	Port     string `json:"port"`
	Host     string `json:"host"`
	SiteURL  string `json:"site_url"`
	Timezone string `json:"timezone"`
	Phone    string `json:"phone"`
	Debug    bool   `json:"debug"`
}

type DatabaseConfig struct {
	Type            string        `json:"type"`
	Path            string        `json:"path"`
	Host            string        `json:"host"`
	Port            string        `json:"port"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	Name            string        `json:"name"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool          `json:"enabled"`
	Host     string        `json:"host"`
	Port     string        `json:"port"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	URL      string        `json:"url"`
	Timeout  time.Duration `json:"timeout"`
	MaxConns int           `json:"max_connections"`
	StatsTTL time.Duration `json:"stats_ttl"`
}

type JWTConfig struct {
	Secret    string        `json:"secret"`
	ExpiresIn time.Duration `json:"expires_in"`
	Issuer    string        `json:"issuer"`
}

type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

type SecurityConfig struct {
	RateLimitRequests     int           `json:"rate_limit_requests"`
	UserRateLimitRequests int           `json:"user_rate_limit_requests"`
	RateLimitWindow       time.Duration `json:"rate_limit_window"`
	MaxUploadSize         int64         `json:"max_upload_size"`
}

type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	File       string `json:"file"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
}

type MediaConfig struct {
	Root string `json:"root"`
	URL  string `json:"url"`
	// TTF шрифт с кириллицей для PDF отчетов; без него используется встроенный Arial
	ReportFont string `json:"report_font"`
}

type BotConfig struct {
	Token          string        `json:"-"`
	APIToken       string        `json:"-"`
	StatsSource    string        `json:"stats_source"`
	StatsTimeout   time.Duration `json:"stats_timeout"`
	AdminUsernames []string      `json:"admin_usernames"`
	AdminIDs       []int64       `json:"admin_ids"`
	DigestCron     string        `json:"digest_cron"`
	Debug          bool          `json:"debug"`
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	// Загружаем .env файл если он существует
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	config := FromEnv()

	// Валидация критически важных настроек
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// FromEnv собирает конфигурацию из текущего окружения без валидации
func FromEnv() *Config {
	return &Config{
		App: AppConfigStruct{
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnv("APP_PORT", "8080"),
			Host:     getEnv("APP_HOST", "0.0.0.0"),
			SiteURL:  strings.TrimRight(getEnv("SITE_URL", ""), "/"),
			Timezone: getEnv("APP_TIMEZONE", "Asia/Tashkent"),
			Phone:    getEnv("LANDING_PHONE", "+998903564334"),
			Debug:    getEnvBool("DEBUG_MODE", false),
		},
		Database: DatabaseConfig{
			Type:            getEnv("DB_TYPE", "postgres"),
			Path:            getEnv("DB_PATH", "gos_landing.db"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "gos_landing"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 300*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			URL:      getEnv("REDIS_URL", ""),
			Timeout:  getEnvDuration("REDIS_TIMEOUT", 5*time.Second),
			MaxConns: getEnvInt("REDIS_MAX_CONNECTIONS", 10),
			StatsTTL: getEnvDuration("STATS_CACHE_TTL", 60*time.Second),
		},
		JWT: JWTConfig{
			Secret:    getEnv("JWT_SECRET", ""),
			ExpiresIn: getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),
			Issuer:    getEnv("JWT_ISSUER", "gos-landing"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 86400),
		},
		Security: SecurityConfig{
			RateLimitRequests:     getEnvInt("RATE_LIMIT_REQUESTS", 60),
			UserRateLimitRequests: getEnvInt("USER_RATE_LIMIT_REQUESTS", 300),
			RateLimitWindow:       getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			MaxUploadSize:         int64(getEnvInt("MAX_UPLOAD_SIZE", 5*1024*1024)),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       getEnv("LOG_FILE", ""),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
		},
		Media: MediaConfig{
			Root:       getEnv("MEDIA_ROOT", "media"),
			URL:        getEnv("MEDIA_URL", "/media/"),
			ReportFont: getEnv("REPORT_FONT_PATH", ""),
		},
		Bot: BotConfig{
			Token:          getEnv("TELEGRAM_BOT_TOKEN", ""),
			APIToken:       getEnv("API_TOKEN", ""),
			StatsSource:    getEnv("BOT_STATS_SOURCE", "db"),
			StatsTimeout:   getEnvDuration("STATS_API_TIMEOUT", 10*time.Second),
			AdminUsernames: getEnvSlice("BOT_ADMIN_USERNAMES", nil),
			AdminIDs:       getEnvInt64Slice("BOT_ADMIN_IDS"),
			DigestCron:     getEnv("BOT_DIGEST_CRON", "0 0 9 * * *"),
			Debug:          getEnvBool("BOT_DEBUG", false),
		},
	}
}

// Validate проверяет корректность конфигурации веб-сервера
func (c *Config) Validate() error {
	// Проверяем обязательные поля для продакшена
	if c.IsProduction() {
		if c.JWT.Secret == "" {
			return fmt.Errorf("%w: JWT_SECRET", ErrMissing)
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
		}
		if c.Database.Type == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("%w: DB_PASSWORD", ErrMissing)
		}
		if c.App.SiteURL == "" {
			return fmt.Errorf("%w: SITE_URL", ErrMissing)
		}
	}

	// Проверяем в любом окружении
	switch c.Database.Type {
	case "postgres":
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME cannot be empty")
		}
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER cannot be empty")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported DB_TYPE: %s", c.Database.Type)
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}

	return nil
}

// ValidateBot проверяет настройки, без которых бот не может работать
func (c *Config) ValidateBot() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN", ErrMissing)
	}

	switch c.Bot.StatsSource {
	case "db":
	case "api":
		if c.App.SiteURL == "" {
			return fmt.Errorf("%w: SITE_URL", ErrMissing)
		}
		if c.Bot.APIToken == "" {
			return fmt.Errorf("%w: API_TOKEN", ErrMissing)
		}
	default:
		return fmt.Errorf("unsupported BOT_STATS_SOURCE: %s", c.Bot.StatsSource)
	}

	if len(c.Bot.AdminUsernames) == 0 && len(c.Bot.AdminIDs) == 0 {
		zap.L().Warn("BOT_ADMIN_USERNAMES and BOT_ADMIN_IDS are empty, admin commands are disabled")
	}

	return nil
}

// Вспомогательные функции для получения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Warning: Invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		log.Printf("Warning: Invalid boolean value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: Invalid duration value for %s: %s, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func getEnvInt64Slice(key string) []int64 {
	var result []int64
	for _, part := range getEnvSlice(key, nil) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Warning: Invalid id in %s: %s, skipped", key, part)
			continue
		}
		result = append(result, id)
	}
	return result
}

// IsProduction проверяет, запущено ли приложение в продакшене
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Location возвращает часовой пояс, в котором считаются календарные дни
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDatabaseDSN возвращает строку подключения к БД
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// GetAdminDSN возвращает строку подключения к служебной БД postgres
func (c *Config) GetAdminDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=postgres sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.SSLMode)
}

// GetRedisAddr возвращает адрес Redis
func (c *Config) GetRedisAddr() string {
	if c.Redis.URL != "" {
		return c.Redis.URL
	}
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// LogConfig выводит конфигурацию в лог (без секретных данных)
func (c *Config) LogConfig(logger *zap.Logger) {
	logger.Info("application configuration",
		zap.String("env", c.App.Env),
		zap.String("port", c.App.Port),
		zap.String("site_url", c.App.SiteURL),
		zap.String("timezone", c.App.Timezone),
		zap.String("database", fmt.Sprintf("%s (%s:%s/%s)", c.Database.Type, c.Database.Host, c.Database.Port, c.Database.Name)),
		zap.Bool("redis_enabled", c.Redis.Enabled),
		zap.String("redis_addr", c.GetRedisAddr()),
		zap.String("jwt_issuer", c.JWT.Issuer),
		zap.String("log_level", c.Logging.Level),
		zap.String("bot_stats_source", c.Bot.StatsSource),
		zap.Bool("debug", c.App.Debug),
	)
}
