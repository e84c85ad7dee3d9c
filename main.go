package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gos_landing/api"
	"gos_landing/config"
	"gos_landing/database"
	"gos_landing/logger"
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

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	cfg.LogConfig(zlog)

	// Создаем базу данных, если она не существует
	if err := database.CreateDatabaseIfNotExists(cfg); err != nil {
		zlog.Fatal("failed to create database", zap.Error(err))
	}
	db, err := database.ConnectDatabase(cfg)
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}
	if err := database.CreatePerformanceIndexes(db); err != nil {
		zlog.Warn("failed to create indexes", zap.Error(err))
	}

	// Redis необязателен: без него кэш и rate limiting отключены
	redisClient, err := database.InitRedis(cfg)
	if err != nil {
		zlog.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}

	router, err := api.SetupRouter(api.NewServices(cfg, db, redisClient, zlog))
	if err != nil {
		zlog.Fatal("failed to set up router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.App.Host, cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zlog.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
