package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gos_landing/config"
	"gos_landing/models"
)

// CreateDatabaseIfNotExists создает базу данных, если она не существует (только PostgreSQL)
func CreateDatabaseIfNotExists(cfg *config.Config) error {
	if cfg.Database.Type != "postgres" {
		return nil
	}

	// Подключаемся к PostgreSQL без указания конкретной БД (к postgres по умолчанию)
	db, err := sql.Open("postgres", cfg.GetAdminDSN())
	if err != nil {
		return fmt.Errorf("не удалось подключиться к PostgreSQL: %w", err)
	}
	defer db.Close()

	// Проверяем подключение
	if err := db.Ping(); err != nil {
		return fmt.Errorf("не удалось проверить подключение к PostgreSQL: %w", err)
	}

	// Проверяем, существует ли база данных
	var exists bool
	query := "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1);"
	if err := db.QueryRow(query, cfg.Database.Name).Scan(&exists); err != nil {
		return fmt.Errorf("ошибка при проверке существования базы данных: %w", err)
	}

	if exists {
		zap.L().Info("database already exists", zap.String("name", cfg.Database.Name))
		return nil
	}

	// Имя базы нельзя передать параметром, экранируем как идентификатор
	createQuery := fmt.Sprintf("CREATE DATABASE %s;", pq.QuoteIdentifier(cfg.Database.Name))
	if _, err := db.Exec(createQuery); err != nil {
		return fmt.Errorf("не удалось создать базу данных '%s': %w", cfg.Database.Name, err)
	}

	zap.L().Info("database created", zap.String("name", cfg.Database.Name))
	return nil
}

// ConnectDatabase инициализирует подключение к базе данных и выполняет автомиграцию
func ConnectDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.App.Debug {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var dialector gorm.Dialector
	switch cfg.Database.Type {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.Path + "?_foreign_keys=on")
	default:
		dialector = postgres.Open(cfg.GetDatabaseDSN())
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить пул соединений: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	zap.L().Info("connected to database", zap.String("type", cfg.Database.Type))

	// Автомиграция моделей
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("ошибка автомиграции: %w", err)
	}

	return db, nil
}

// AutoMigrate выполняет автомиграцию всех моделей
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		// Пользователи и локации
		&models.User{},
		&models.Location{},
		&models.QRCodeScan{},
		&models.PhoneClick{},

		// Каталог мебели
		&models.FurnitureCategory{},
		&models.FurnitureItem{},
		&models.FurnitureImage{},

		// Журнал действий
		&models.AuditLog{},
	)
	if err != nil {
		return err
	}

	zap.L().Info("auto-migration completed")
	return nil
}
