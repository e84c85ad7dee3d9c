package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gos_landing/models"
)

// MaintenanceService - разовые служебные операции над каталогом (команды manage)
type MaintenanceService struct {
	db     *gorm.DB
	images *ImageService
	logger *zap.Logger
}

// NewMaintenanceService создает новый экземпляр MaintenanceService
func NewMaintenanceService(db *gorm.DB, images *ImageService, log *zap.Logger) *MaintenanceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MaintenanceService{db: db, images: images, logger: log}
}

// RecompressResult - итог пересжатия изображений
type RecompressResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// RecompressImages пересжимает все сохраненные изображения категорий, товаров и галерей.
// Ошибка отдельного файла логируется и не прерывает обработку.
func (m *MaintenanceService) RecompressImages(ctx context.Context) (*RecompressResult, error) {
	result := &RecompressResult{}
	db := m.db.WithContext(ctx)

	targets := []struct {
		table   string
		column  string
		profile ImageProfile
	}{
		{"furniture_categories", "image", CategoryImageProfile},
		{"furniture_items", "main_image", ItemImageProfile},
		{"furniture_images", "image", GalleryImageProfile},
	}

	for _, target := range targets {
		var rows []struct {
			ID   uint
			Path string
		}
		err := db.Table(target.table).
			Select(fmt.Sprintf("id, %s AS path", target.column)).
			Where(fmt.Sprintf("%s <> ''", target.column)).
			Order("id ASC").Scan(&rows).Error
		if err != nil {
			return result, fmt.Errorf("ошибка загрузки %s: %w", target.table, err)
		}

		for _, row := range rows {
			newPath, err := m.images.Recompress(row.Path, target.profile)
			if err != nil {
				result.Failed++
				m.logger.Warn("failed to recompress image",
					zap.String("table", target.table),
					zap.Uint("id", row.ID),
					zap.String("path", row.Path),
					zap.Error(err))
				continue
			}
			if newPath != row.Path {
				if err := db.Table(target.table).Where("id = ?", row.ID).UpdateColumn(target.column, newPath).Error; err != nil {
					return result, err
				}
			}
			result.Processed++
		}
	}

	return result, nil
}

// SeedDemoData заполняет пустую базу демонстрационным каталогом и локациями
func (m *MaintenanceService) SeedDemoData(ctx context.Context, categories, itemsPerCategory int) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 1; i <= categories; i++ {
			category := &models.FurnitureCategory{
				Name:        fmt.Sprintf("Категория %d", i),
				Description: "Демонстрационная категория",
				SortOrder:   i,
				IsActive:    true,
			}
			if err := tx.Create(category).Error; err != nil {
				return fmt.Errorf("ошибка создания категории: %w", err)
			}

			for j := 1; j <= itemsPerCategory; j++ {
				price := decimal.NewFromInt(int64(1_000_000 + 250_000*j))
				item := &models.FurnitureItem{
					CategoryID:  category.ID,
					Name:        fmt.Sprintf("Товар %d-%d", i, j),
					Description: "Демонстрационный товар",
					Price:       decimal.NewNullDecimal(price),
					Dimensions:  "200x90x80 см",
					Materials:   "Массив дерева",
					IsFeatured:  j == 1,
					IsActive:    true,
					SortOrder:   j,
				}
				if j%3 == 0 {
					item.DiscountPrice = decimal.NewNullDecimal(price.Mul(decimal.NewFromFloat(0.9)).Round(0))
				}
				if err := tx.Create(item).Error; err != nil {
					return fmt.Errorf("ошибка создания товара: %w", err)
				}
			}
		}

		var count int64
		if err := tx.Model(&models.Location{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			for _, name := range []string{"Магазин на Чиланзаре", "ТЦ Самарканд Дарвоза", "Выставка"} {
				if err := tx.Create(&models.Location{Name: name, Description: "Демонстрационная точка"}).Error; err != nil {
					return fmt.Errorf("ошибка создания локации: %w", err)
				}
			}
		}

		m.logger.Info("demo data seeded",
			zap.Int("categories", categories),
			zap.Int("items_per_category", itemsPerCategory))
		return nil
	})
}

// ImportImagesResult - итог создания товаров из директории с изображениями
type ImportImagesResult struct {
	Created []string `json:"created"`
	Failed  []string `json:"failed"`
}

var importableImage = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// CreateItemsFromImages создает по товару на каждое изображение директории dir
// в категории categoryName. Товары называются <prefix>_<n> в порядке имен файлов,
// слаги генерируются хуками модели. Файл, который не удалось обработать,
// пропускается без создания товара.
func (m *MaintenanceService) CreateItemsFromImages(ctx context.Context, dir, categoryName, prefix string) (*ImportImagesResult, error) {
	var category models.FurnitureCategory
	err := m.db.WithContext(ctx).Where("name = ?", categoryName).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryName)
		}
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && importableImage[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoImages, dir)
	}

	result := &ImportImagesResult{}
	for i, file := range files {
		path, err := m.images.Import(filepath.Join(dir, file), ItemImageProfile)
		if err != nil {
			m.logger.Warn("failed to import image", zap.String("file", file), zap.Error(err))
			result.Failed = append(result.Failed, file)
			continue
		}

		item := &models.FurnitureItem{
			CategoryID: category.ID,
			Name:       fmt.Sprintf("%s_%d", prefix, i+1),
			MainImage:  path,
			IsActive:   true,
			SortOrder:  i + 1,
		}
		if err := m.db.WithContext(ctx).Create(item).Error; err != nil {
			_ = os.Remove(m.images.Path(path))
			return result, fmt.Errorf("ошибка создания товара %s: %w", item.Name, err)
		}
		result.Created = append(result.Created, item.Name)
	}

	m.logger.Info("items created from images",
		zap.String("category", categoryName),
		zap.Int("created", len(result.Created)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}
