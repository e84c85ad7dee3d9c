// Команда bot запускает Telegram бота статистики QR-кодов.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"gos_landing/config"
	"gos_landing/database"
	"gos_landing/logger"
	"gos_landing/services"
	"gos_landing/telegram"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("❌ Ошибка конфигурации: ", err)
	}
	zlog, err := logger.Init(cfg.Logging)
	if err != nil {
		log.Fatal("❌ Ошибка инициализации логгера: ", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := cfg.ValidateBot(); err != nil {
		zlog.Fatal("invalid bot configuration", zap.Error(err))
	}

	// База нужна всегда: регистрация по контакту и получатели сводки
	db, err := database.ConnectDatabase(cfg)
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}
	redisClient, err := database.InitRedis(cfg)
	if err != nil {
		zlog.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}

	var provider telegram.StatsProvider
	switch cfg.Bot.StatsSource {
	case "api":
		provider = telegram.NewAPIProvider(cfg.App.SiteURL, cfg.Bot.APIToken, cfg.Bot.StatsTimeout)
	default:
		cache := services.NewCacheService(redisClient, cfg.Redis.StatsTTL, zlog)
		provider = telegram.NewDirectProvider(services.NewStatsService(db, cache, cfg.Location()))
	}
	zlog.Info("statistics source selected", zap.String("source", cfg.Bot.StatsSource))

	api, err := telegram.NewBotAPI(cfg.Bot.Token, cfg.Bot.Debug)
	if err != nil {
		zlog.Fatal("failed to authorize telegram bot", zap.Error(err))
	}
	zlog.Info("authorized telegram bot", zap.String("username", api.Self.UserName))

	bot := telegram.NewBot(
		api,
		provider,
		services.NewUserService(db),
		telegram.NewAuthorizer(cfg.Bot.AdminUsernames, cfg.Bot.AdminIDs),
		zlog,
		cfg.Location(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bot.StartDigest(ctx, cfg.Bot.DigestCron); err != nil {
		zlog.Fatal("failed to schedule digest", zap.Error(err))
	}
	defer bot.StopDigest()

	bot.Run(ctx)
}
