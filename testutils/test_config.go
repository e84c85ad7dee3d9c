package testutils

import (
	"time"

	"gos_landing/config"
)

// TestJWTSecret используется всеми тестами, выпускающими токены
const TestJWTSecret = "test-secret-key-for-testing-only-0123456789"

// TestConfig возвращает конфигурацию для тестов без обращения к окружению
func TestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfigStruct{
			Env:      "test",
			Port:     "8080",
			SiteURL:  "https://example.com",
			Timezone: "Asia/Tashkent",
			Phone:    "+998903564334",
		},
		Database: config.DatabaseConfig{Type: "sqlite", Path: ":memory:"},
		JWT: config.JWTConfig{
			Secret:    TestJWTSecret,
			ExpiresIn: time.Hour,
			Issuer:    "gos-landing-test",
		},
		Security: config.SecurityConfig{
			RateLimitRequests:     60,
			UserRateLimitRequests: 300,
			RateLimitWindow:       time.Minute,
			MaxUploadSize:         5 << 20,
		},
		Media: config.MediaConfig{Root: "media", URL: "/media/"},
		Bot: config.BotConfig{
			StatsSource:  "db",
			StatsTimeout: 2 * time.Second,
		},
	}
}
