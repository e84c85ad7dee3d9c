package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DatabaseIndex представляет индекс базы данных
type DatabaseIndex struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
	Type    string // btree, gin
}

// PerformanceIndexes - составные индексы под запросы статистики и каталога.
// Одиночные индексы объявлены в тегах моделей.
var PerformanceIndexes = []DatabaseIndex{
	// Подсчет сканирований по локации за окно
	{
		Name:    "idx_qr_code_scans_location_timestamp",
		Table:   "qr_code_scans",
		Columns: []string{"location_id", "timestamp"},
		Type:    "btree",
	},
	// Подсчет кликов через сканирования
	{
		Name:    "idx_phone_clicks_scan_timestamp",
		Table:   "phone_clicks",
		Columns: []string{"scan_id", "timestamp"},
		Type:    "btree",
	},
	// Страница категории
	{
		Name:    "idx_furniture_items_category_active_order",
		Table:   "furniture_items",
		Columns: []string{"category_id", "is_active", "sort_order"},
		Type:    "btree",
	},
	// Блок популярных товаров на главной
	{
		Name:    "idx_furniture_items_featured_active",
		Table:   "furniture_items",
		Columns: []string{"is_featured", "is_active"},
		Type:    "btree",
	},
	{
		Name:    "idx_location_users_user",
		Table:   "location_users",
		Columns: []string{"user_id", "location_id"},
		Type:    "btree",
	},
	// Полнотекстовый поиск по товарам (только PostgreSQL)
	{
		Name:    "idx_furniture_items_fulltext",
		Table:   "furniture_items",
		Columns: []string{"name", "description"},
		Type:    "gin",
	},
}

// CreatePerformanceIndexes создает индексы для оптимизации производительности.
// Ошибка одного индекса не останавливает создание остальных.
func CreatePerformanceIndexes(db *gorm.DB) error {
	log := zap.L()
	created := 0

	for _, index := range PerformanceIndexes {
		if index.Type == "gin" && db.Dialector.Name() != "postgres" {
			continue
		}
		if err := CreateIndex(db, index); err != nil {
			log.Warn("failed to create index", zap.String("index", index.Name), zap.Error(err))
			continue
		}
		created++
	}

	log.Info("performance indexes ensured", zap.Int("count", created))
	return nil
}

// CreateIndex создает отдельный индекс
func CreateIndex(db *gorm.DB, index DatabaseIndex) error {
	var sql string

	switch index.Type {
	case "gin":
		parts := make([]string, len(index.Columns))
		for i, col := range index.Columns {
			parts[i] = fmt.Sprintf("COALESCE(%s, '')", col)
		}
		sql = fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (to_tsvector('russian', %s))",
			index.Name, index.Table, strings.Join(parts, " || ' ' || "),
		)
	default:
		uniqueStr := ""
		if index.Unique {
			uniqueStr = "UNIQUE "
		}
		sql = fmt.Sprintf(
			"CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			uniqueStr, index.Name, index.Table, strings.Join(index.Columns, ", "),
		)
	}

	return db.Exec(sql).Error
}

// DropIndex удаляет индекс
func DropIndex(db *gorm.DB, indexName string) error {
	return db.Exec(fmt.Sprintf("DROP INDEX IF EXISTS %s", indexName)).Error
}

// OptimizeDatabase обновляет статистику планировщика и очищает мертвые строки
func OptimizeDatabase(db *gorm.DB) error {
	if err := db.Exec("ANALYZE").Error; err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}
	if err := db.Exec("VACUUM").Error; err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

// TableStat - количество строк таблицы
type TableStat struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// GetTableStats возвращает количество строк в таблицах приложения
func GetTableStats(db *gorm.DB) ([]TableStat, error) {
	tables := []string{"users", "locations", "location_users", "qr_code_scans", "phone_clicks",
		"furniture_categories", "furniture_items", "furniture_images", "audit_logs"}

	stats := make([]TableStat, 0, len(tables))
	for _, table := range tables {
		var count int64
		if err := db.Table(table).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats = append(stats, TableStat{Table: table, Rows: count})
	}
	return stats, nil
}
