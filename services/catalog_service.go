package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gos_landing/models"
)

// CatalogService - чтение и редактирование каталога мебели
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService создает новый экземпляр CatalogService
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func orderImages(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

func activeItems(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true).Order("sort_order ASC, name ASC")
}

// ActiveCategories возвращает активные категории в порядке отображения
func (s *CatalogService) ActiveCategories(ctx context.Context) ([]models.FurnitureCategory, error) {
	var categories []models.FurnitureCategory
	err := s.db.WithContext(ctx).Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").Find(&categories).Error
	return categories, err
}

// AllCategories возвращает все категории для админки
func (s *CatalogService) AllCategories(ctx context.Context) ([]models.FurnitureCategory, error) {
	var categories []models.FurnitureCategory
	err := s.db.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&categories).Error
	return categories, err
}

// FeaturedItems возвращает рекомендуемые активные товары из активных категорий
func (s *CatalogService) FeaturedItems(ctx context.Context, limit int) ([]models.FurnitureItem, error) {
	var items []models.FurnitureItem
	err := s.db.WithContext(ctx).
		InnerJoins("Category", s.db.Where(&models.FurnitureCategory{IsActive: true})).
		Where("furniture_items.is_active = ? AND furniture_items.is_featured = ?", true, true).
		Order("furniture_items.sort_order ASC, furniture_items.name ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// RoomItems возвращает активные товары с изображением для примерки в интерьере
func (s *CatalogService) RoomItems(ctx context.Context) ([]models.FurnitureItem, error) {
	var items []models.FurnitureItem
	err := s.db.WithContext(ctx).
		InnerJoins("Category", s.db.Where(&models.FurnitureCategory{IsActive: true})).
		Where("furniture_items.is_active = ? AND furniture_items.main_image <> ''", true).
		Order("furniture_items.sort_order ASC, furniture_items.name ASC").
		Find(&items).Error
	return items, err
}

// CategoryBySlug возвращает активную категорию с ее активными товарами
func (s *CatalogService) CategoryBySlug(ctx context.Context, slug string) (*models.FurnitureCategory, error) {
	var category models.FurnitureCategory
	err := s.db.WithContext(ctx).
		Preload("Items", activeItems).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ItemBySlug возвращает активный товар активной категории с галереей
func (s *CatalogService) ItemBySlug(ctx context.Context, categorySlug, itemSlug string) (*models.FurnitureItem, error) {
	category, err := s.CategoryBySlug(ctx, categorySlug)
	if err != nil {
		return nil, err
	}

	var item models.FurnitureItem
	err = s.db.WithContext(ctx).
		Preload("Images", orderImages).
		Where("slug = ? AND category_id = ? AND is_active = ?", itemSlug, category.ID, true).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	item.Category = category
	return &item, nil
}

// CategoryInput - поля категории, редактируемые в админке
type CategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	IsActive    *bool  `json:"is_active"`
}

// CreateCategory создает категорию; пустой слаг заполняется хуком модели
func (s *CatalogService) CreateCategory(ctx context.Context, input CategoryInput) (*models.FurnitureCategory, error) {
	category := &models.FurnitureCategory{
		Name:        strings.TrimSpace(input.Name),
		Slug:        strings.TrimSpace(input.Slug),
		Description: input.Description,
		SortOrder:   input.Order,
		IsActive:    input.IsActive == nil || *input.IsActive,
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания категории: %w", err)
	}
	return category, nil
}

// UpdateCategory обновляет категорию. Пустой слаг генерируется заново.
func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, input CategoryInput) (*models.FurnitureCategory, error) {
	var category models.FurnitureCategory
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	category.Name = strings.TrimSpace(input.Name)
	category.Description = input.Description
	category.SortOrder = input.Order
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	slug, err := s.resolveSlug(ctx, models.CatalogSlugTargets[0], input.Slug, category.Name, category.ID)
	if err != nil {
		return nil, err
	}
	category.Slug = slug

	if err := s.db.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, fmt.Errorf("ошибка сохранения категории: %w", err)
	}
	return &category, nil
}

// ItemInput - поля товара, редактируемые в админке
type ItemInput struct {
	CategoryID    uint                `json:"category_id" binding:"required"`
	Name          string              `json:"name" binding:"required"`
	Slug          string              `json:"slug"`
	Description   string              `json:"description"`
	Price         decimal.NullDecimal `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	Dimensions    string              `json:"dimensions"`
	Materials     string              `json:"materials"`
	IsFeatured    bool                `json:"is_featured"`
	IsActive      *bool               `json:"is_active"`
	Order         int                 `json:"order"`
}

// CreateItem создает товар в существующей категории
func (s *CatalogService) CreateItem(ctx context.Context, input ItemInput) (*models.FurnitureItem, error) {
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	item := &models.FurnitureItem{
		CategoryID:    input.CategoryID,
		Name:          strings.TrimSpace(input.Name),
		Slug:          strings.TrimSpace(input.Slug),
		Description:   input.Description,
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
		Dimensions:    input.Dimensions,
		Materials:     input.Materials,
		IsFeatured:    input.IsFeatured,
		IsActive:      input.IsActive == nil || *input.IsActive,
		SortOrder:     input.Order,
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания товара: %w", err)
	}
	return item, nil
}

// UpdateItem обновляет товар. Пустой слаг генерируется заново.
func (s *CatalogService) UpdateItem(ctx context.Context, id uint, input ItemInput) (*models.FurnitureItem, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	item.CategoryID = input.CategoryID
	item.Category = nil
	item.Name = strings.TrimSpace(input.Name)
	item.Description = input.Description
	item.Price = input.Price
	item.DiscountPrice = input.DiscountPrice
	item.Dimensions = input.Dimensions
	item.Materials = input.Materials
	item.IsFeatured = input.IsFeatured
	item.SortOrder = input.Order
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}

	slug, err := s.resolveSlug(ctx, models.CatalogSlugTargets[1], input.Slug, item.Name, item.ID)
	if err != nil {
		return nil, err
	}
	item.Slug = slug

	if err := s.db.WithContext(ctx).Omit("Images").Save(item).Error; err != nil {
		return nil, fmt.Errorf("ошибка сохранения товара: %w", err)
	}
	return item, nil
}

// GetItem возвращает товар по идентификатору с галереей
func (s *CatalogService) GetItem(ctx context.Context, id uint) (*models.FurnitureItem, error) {
	var item models.FurnitureItem
	err := s.db.WithContext(ctx).Preload("Images", orderImages).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems возвращает товары категории (или все) для админки
func (s *CatalogService) ListItems(ctx context.Context, categoryID uint) ([]models.FurnitureItem, error) {
	query := s.db.WithContext(ctx).Order("sort_order ASC, name ASC")
	if categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	var items []models.FurnitureItem
	err := query.Find(&items).Error
	return items, err
}

// SetCategoryImage сохраняет путь изображения категории
func (s *CatalogService) SetCategoryImage(ctx context.Context, id uint, path string) error {
	result := s.db.WithContext(ctx).Model(&models.FurnitureCategory{}).Where("id = ?", id).Update("image", path)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// SetItemMainImage сохраняет путь основного изображения товара
func (s *CatalogService) SetItemMainImage(ctx context.Context, id uint, path string) error {
	result := s.db.WithContext(ctx).Model(&models.FurnitureItem{}).Where("id = ?", id).Update("main_image", path)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// AddItemImage добавляет изображение в конец галереи товара
func (s *CatalogService) AddItemImage(ctx context.Context, itemID uint, path, alt string) (*models.FurnitureImage, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}

	var maxOrder struct{ Max int }
	if err := s.db.WithContext(ctx).Model(&models.FurnitureImage{}).
		Select("COALESCE(MAX(sort_order), -1) AS max").
		Where("item_id = ?", itemID).Scan(&maxOrder).Error; err != nil {
		return nil, err
	}

	image := &models.FurnitureImage{ItemID: itemID, Image: path, AltText: alt, SortOrder: maxOrder.Max + 1}
	if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
		return nil, fmt.Errorf("ошибка сохранения изображения: %w", err)
	}
	return image, nil
}

// FixSlugs заполняет пустые и разводит повторяющиеся слаги категорий и товаров.
// Возвращает количество исправленных записей.
func (s *CatalogService) FixSlugs(ctx context.Context) (int, error) {
	fixed := 0
	for _, target := range models.CatalogSlugTargets {
		var rows []struct {
			ID   uint
			Name string
			Slug string
		}
		if err := s.db.WithContext(ctx).Table(target.Table).Select("id, name, slug").Order("id ASC").Scan(&rows).Error; err != nil {
			return fixed, err
		}

		seen := make(map[string]bool, len(rows))
		for _, row := range rows {
			if row.Slug != "" && !seen[row.Slug] && !models.IsPendingSlug(row.Slug) {
				seen[row.Slug] = true
				continue
			}

			slug, err := s.resolveSlug(ctx, target, "", row.Name, row.ID)
			if err != nil {
				return fixed, err
			}
			if err := s.db.WithContext(ctx).Table(target.Table).Where("id = ?", row.ID).UpdateColumn("slug", slug).Error; err != nil {
				return fixed, err
			}
			seen[slug] = true
			fixed++
		}
	}
	return fixed, nil
}

// ImportEntry - переименование товара при импорте из JSON
type ImportEntry struct {
	OldName     string `json:"old_name"`
	NewName     string `json:"new_name"`
	Description string `json:"description"`
}

// ImportResult - итог импорта
type ImportResult struct {
	Updated int      `json:"updated"`
	Missing []string `json:"missing"`
}

// ImportDescriptions обновляет названия и описания товаров по данным
// вида {"<категория>": [{"old_name", "new_name", "description"}]}
func (s *CatalogService) ImportDescriptions(ctx context.Context, data map[string][]ImportEntry) (*ImportResult, error) {
	result := &ImportResult{Missing: []string{}}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for categoryName, entries := range data {
			var category models.FurnitureCategory
			err := tx.Where("name = ?", categoryName).First(&category).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Missing = append(result.Missing, categoryName)
				continue
			}
			if err != nil {
				return err
			}

			for _, entry := range entries {
				updates := map[string]interface{}{}
				if entry.NewName != "" {
					updates["name"] = entry.NewName
				}
				if entry.Description != "" {
					updates["description"] = entry.Description
				}
				if len(updates) == 0 {
					continue
				}
				res := tx.Model(&models.FurnitureItem{}).
					Where("category_id = ? AND name = ?", category.ID, entry.OldName).
					Updates(updates)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					result.Missing = append(result.Missing, categoryName+" / "+entry.OldName)
					continue
				}
				result.Updated += int(res.RowsAffected)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveSlug возвращает уникальный слаг: явный, из названия или из идентификатора
func (s *CatalogService) resolveSlug(ctx context.Context, target models.SlugTarget, explicit, name string, id uint) (string, error) {
	base := models.Slugify(strings.TrimSpace(explicit))
	if base == "" {
		base = models.Slugify(name)
	}
	if base == "" {
		base = models.FallbackSlug(target.Prefix, id)
	}
	return models.UniqueSlug(s.db.WithContext(ctx), target.Table, base, target.MaxLen, id)
}

func (s *CatalogService) ensureCategory(ctx context.Context, id uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.FurnitureCategory{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
