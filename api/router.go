package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gos_landing/config"
	"gos_landing/logger"
	"gos_landing/middleware"
	"gos_landing/services"
	"gos_landing/web"
)

// Services - зависимости HTTP слоя, собранные один раз при старте
type Services struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *zap.Logger

	Cache     *services.CacheService
	Visits    *services.VisitService
	Locations *services.LocationService
	Stats     *services.StatsService
	Users     *services.UserService
	Tokens    *services.TokenService
	Catalog   *services.CatalogService
	QRCodes   *services.QRCodeService
	Images    *services.ImageService
	Reports   *services.ReportService
	Audit     *services.AuditService
}

// NewServices создает сервисы приложения. redisClient может быть nil.
func NewServices(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log *zap.Logger) *Services {
	if log == nil {
		log = zap.NewNop()
	}
	cache := services.NewCacheService(redisClient, cfg.Redis.StatsTTL, log)
	stats := services.NewStatsService(db, cache, cfg.Location())

	return &Services{
		Config:    cfg,
		DB:        db,
		Redis:     redisClient,
		Logger:    log,
		Cache:     cache,
		Visits:    services.NewVisitService(db, log),
		Locations: services.NewLocationService(db),
		Stats:     stats,
		Users:     services.NewUserService(db),
		Tokens:    services.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpiresIn),
		Catalog:   services.NewCatalogService(db),
		QRCodes:   services.NewQRCodeService(cfg.App.SiteURL),
		Images:    services.NewImageService(cfg.Media.Root, cfg.Security.MaxUploadSize),
		Reports:   services.NewReportService(stats, cfg.Media.ReportFont),
		Audit:     services.NewAuditService(db, log),
	}
}

// SetupRouter настраивает все маршруты веб-сервера
func SetupRouter(svc *Services) (*gin.Engine, error) {
	cfg := svc.Config

	templates, err := web.Templates(cfg.Media.URL)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора шаблонов: %w", err)
	}

	r := gin.New()
	r.Use(logger.GinLogger(svc.Logger), logger.GinRecovery(svc.Logger))
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.SetHTMLTemplate(templates)
	r.MaxMultipartMemory = cfg.Security.MaxUploadSize

	auth := middleware.NewAuthMiddleware(svc.Tokens, svc.Users)
	publicLimit := middleware.PublicRateLimit(svc.Redis, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow)
	userLimit := middleware.UserRateLimit(svc.Redis, cfg.Security.UserRateLimitRequests, cfg.Security.RateLimitWindow)

	visitAPI := NewVisitAPI(svc.Visits, svc.Locations, svc.QRCodes, svc.Logger)
	authAPI := NewAuthAPI(svc.Users, svc.Tokens, svc.Audit, svc.Logger)
	statsAPI := NewStatsAPI(svc.Stats, svc.Logger)
	catalogAPI := NewCatalogAPI(svc.Catalog, cfg.App.Phone, svc.Logger)
	adminAPI := NewAdminAPI(svc)

	// Базовые роуты
	r.GET("/ping", func(c *gin.Context) {
		status := "connected"
		if sqlDB, err := svc.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "unavailable"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "success",
			"message":  "pong",
			"database": status,
		})
	})
	r.Static("/media", cfg.Media.Root)
	r.StaticFS("/static", http.FS(web.Static()))

	// Лендинг и каталог
	r.GET("/", catalogAPI.Landing)
	r.GET("/catalog/", catalogAPI.Catalog)
	r.GET("/catalog/:category_slug/", catalogAPI.Category)
	r.GET("/catalog/:category_slug/:item_slug/", catalogAPI.Item)
	r.GET("/see-it-in-your-room/", catalogAPI.SeeItInYourRoom)

	// Публичные маршруты учета визитов
	r.GET("/visit/:location_id/", publicLimit, visitAPI.Visit)
	r.POST("/record-phone-click/", publicLimit, visitAPI.RecordPhoneClick)
	r.GET("/qrcode/:location_id/", visitAPI.QRCode)

	// API роуты
	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/record-phone-click/", publicLimit, visitAPI.RecordPhoneClick)
		apiGroup.POST("/token/", middleware.AuthRateLimit(svc.Redis), authAPI.ObtainToken)
		apiGroup.GET("/location-stats/", auth.RequireAuth(), userLimit, statsAPI.LocationStats)
	}

	// Административные роуты
	admin := r.Group("/admin", auth.RequireAuth(), userLimit, auth.RequireStaff())
	{
		admin.GET("/locations/", adminAPI.ListLocations)
		admin.POST("/locations/", adminAPI.CreateLocation)
		admin.GET("/locations/:id/", adminAPI.GetLocation)
		admin.PUT("/locations/:id/", adminAPI.UpdateLocation)
		admin.DELETE("/locations/:id/", adminAPI.DeleteLocation)
		admin.PUT("/locations/:id/owners/", adminAPI.SetLocationOwners)
		admin.GET("/locations/:id/qrcode/", adminAPI.LocationQRCode)
		admin.GET("/locations/:id/statistics/", adminAPI.LocationStatistics)
		admin.GET("/qrcodes/", adminAPI.QRCodes)

		admin.GET("/statistics/", adminAPI.Statistics)
		admin.GET("/statistics/export", adminAPI.ExportStatistics)
		admin.GET("/scans/", adminAPI.ListScans)
		admin.GET("/clicks/", adminAPI.ListClicks)

		admin.GET("/categories/", adminAPI.ListCategories)
		admin.POST("/categories/", adminAPI.CreateCategory)
		admin.PUT("/categories/:id/", adminAPI.UpdateCategory)
		admin.POST("/categories/:id/image/", adminAPI.UploadCategoryImage)

		admin.GET("/items/", adminAPI.ListItems)
		admin.POST("/items/", adminAPI.CreateItem)
		admin.GET("/items/:id/", adminAPI.GetItem)
		admin.PUT("/items/:id/", adminAPI.UpdateItem)
		admin.POST("/items/:id/image/", adminAPI.UploadItemImage)
		admin.POST("/items/:id/images/", adminAPI.AddItemGalleryImage)

		admin.GET("/users/", adminAPI.ListUsers)
		admin.POST("/users/", adminAPI.CreateUser)

		admin.GET("/audit/", adminAPI.ListAudit)
	}

	return r, nil
}

// corsConfig переводит настройки CORS_* в конфигурацию gin-contrib/cors
func corsConfig(c config.CORSConfig) cors.Config {
	result := cors.Config{
		AllowMethods:     c.AllowedMethods,
		AllowHeaders:     c.AllowedHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           time.Duration(c.MaxAge) * time.Second,
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			result.AllowAllOrigins = true
			return result
		}
	}
	result.AllowOrigins = c.AllowedOrigins
	if len(result.AllowOrigins) == 0 {
		result.AllowAllOrigins = true
	}
	return result
}
