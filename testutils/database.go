package testutils

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gos_landing/database"
	"gos_landing/models"
)

// SetupTestDB создает тестовую базу SQLite во временной директории и выполняет миграции.
// Эта функция должна использоваться во всех тестах для обеспечения консистентности
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Отключаем логи в тестах
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// CleanupTestDB закрывает соединение с тестовой базой
func CleanupTestDB(db *gorm.DB) {
	if db != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}
}

// CreateTestLocation создает локацию
func CreateTestLocation(t *testing.T, db *gorm.DB, name string, owners ...*models.User) *models.Location {
	t.Helper()

	location := &models.Location{Name: name, Description: "Тестовая точка " + name}
	if err := db.Create(location).Error; err != nil {
		t.Fatalf("Failed to create test location: %v", err)
	}
	for _, owner := range owners {
		if err := db.Model(location).Association("Users").Append(owner); err != nil {
			t.Fatalf("Failed to assign location owner: %v", err)
		}
	}
	return location
}

// CreateTestUser создает активного пользователя. Пароль хранится как есть,
// тесты аутентификации хэшируют его сами.
func CreateTestUser(t *testing.T, db *gorm.DB, username string, staff bool) *models.User {
	t.Helper()

	user := &models.User{
		Username:    username,
		Password:    "hashed_password",
		FirstName:   "Test",
		PhoneNumber: "",
		IsStaff:     staff,
		IsActive:    true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// CreateTestScan создает сканирование локации в указанный момент
func CreateTestScan(t *testing.T, db *gorm.DB, locationID uint, at time.Time) *models.QRCodeScan {
	t.Helper()

	scan := &models.QRCodeScan{LocationID: locationID, Timestamp: at, UserAgent: "test-agent"}
	if err := db.Create(scan).Error; err != nil {
		t.Fatalf("Failed to create test scan: %v", err)
	}
	return scan
}

// CreateTestClick создает клик по телефону для сканирования
func CreateTestClick(t *testing.T, db *gorm.DB, scanID uint, at time.Time) *models.PhoneClick {
	t.Helper()

	click := &models.PhoneClick{ScanID: scanID, Timestamp: at}
	if err := db.Create(click).Error; err != nil {
		t.Fatalf("Failed to create test click: %v", err)
	}
	return click
}
