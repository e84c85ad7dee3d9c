package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	categorySlugMaxLen = 100
	itemSlugMaxLen     = 200
)

// FurnitureCategory представляет категорию каталога мебели
type FurnitureCategory struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name" gorm:"not null;type:varchar(100)"`
	Slug        string    `json:"slug" gorm:"uniqueIndex;not null;type:varchar(100)"`
	Description string    `json:"description" gorm:"type:text"`
	Image       string    `json:"image" gorm:"type:varchar(255)"` // путь относительно MEDIA_ROOT
	SortOrder   int       `json:"order" gorm:"default:0;index"`
	IsActive    bool      `json:"is_active" gorm:"index"`

	Items []FurnitureItem `json:"items,omitempty" gorm:"foreignKey:CategoryID"`
}

// TableName задает имя таблицы для модели FurnitureCategory
func (FurnitureCategory) TableName() string {
	return "furniture_categories"
}

// BeforeCreate заполняет пустой слаг из названия
func (c *FurnitureCategory) BeforeCreate(tx *gorm.DB) (err error) {
	c.Slug, err = prepareSlug(tx, c.TableName(), c.Slug, c.Name, categorySlugMaxLen)
	return err
}

// AfterCreate заменяет временный слаг на category-<id>
func (c *FurnitureCategory) AfterCreate(tx *gorm.DB) error {
	if !IsPendingSlug(c.Slug) {
		return nil
	}
	slug, err := finalizeSlug(tx, c, c.TableName(), "category", c.ID, categorySlugMaxLen)
	if err != nil {
		return err
	}
	c.Slug = slug
	return nil
}

// FurnitureItem представляет товар каталога
type FurnitureItem struct {
	ID         uint               `json:"id" gorm:"primarykey"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	CategoryID uint               `json:"category_id" gorm:"not null;index"`
	Category   *FurnitureCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`

	Name        string `json:"name" gorm:"not null;type:varchar(200)"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null;type:varchar(200)"`
	Description string `json:"description" gorm:"type:text"`

	// Цены (необязательные)
	Price         decimal.NullDecimal `json:"price" gorm:"type:decimal(10,2)"`
	DiscountPrice decimal.NullDecimal `json:"discount_price" gorm:"type:decimal(10,2)"`

	MainImage  string `json:"main_image" gorm:"type:varchar(255)"`
	Dimensions string `json:"dimensions" gorm:"type:varchar(100)"`
	Materials  string `json:"materials" gorm:"type:varchar(200)"`

	IsFeatured bool `json:"is_featured" gorm:"index"`
	IsActive   bool `json:"is_active" gorm:"index"`
	SortOrder  int  `json:"order" gorm:"default:0;index"`

	Images []FurnitureImage `json:"images,omitempty" gorm:"foreignKey:ItemID"`
}

// TableName задает имя таблицы для модели FurnitureItem
func (FurnitureItem) TableName() string {
	return "furniture_items"
}

// BeforeCreate заполняет пустой слаг из названия
func (i *FurnitureItem) BeforeCreate(tx *gorm.DB) (err error) {
	i.Slug, err = prepareSlug(tx, i.TableName(), i.Slug, i.Name, itemSlugMaxLen)
	return err
}

// AfterCreate заменяет временный слаг на item-<id>
func (i *FurnitureItem) AfterCreate(tx *gorm.DB) error {
	if !IsPendingSlug(i.Slug) {
		return nil
	}
	slug, err := finalizeSlug(tx, i, i.TableName(), "item", i.ID, itemSlugMaxLen)
	if err != nil {
		return err
	}
	i.Slug = slug
	return nil
}

// EffectivePrice возвращает цену со скидкой, если она задана и ниже обычной
func (i *FurnitureItem) EffectivePrice() decimal.NullDecimal {
	if i.DiscountPrice.Valid && (!i.Price.Valid || i.DiscountPrice.Decimal.LessThan(i.Price.Decimal)) {
		return i.DiscountPrice
	}
	return i.Price
}

// HasDiscount сообщает, действует ли скидка
func (i *FurnitureItem) HasDiscount() bool {
	return i.Price.Valid && i.DiscountPrice.Valid && i.DiscountPrice.Decimal.LessThan(i.Price.Decimal)
}

// FurnitureImage - изображение в галерее товара
type FurnitureImage struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	ItemID    uint      `json:"item_id" gorm:"not null;index"`
	Image     string    `json:"image" gorm:"not null;type:varchar(255)"`
	AltText   string    `json:"alt_text" gorm:"type:varchar(200)"`
	SortOrder int       `json:"order" gorm:"default:0"`
}

// TableName задает имя таблицы для модели FurnitureImage
func (FurnitureImage) TableName() string {
	return "furniture_images"
}

// SlugTarget описывает таблицу каталога для массового исправления слагов
type SlugTarget struct {
	Table  string
	Prefix string
	MaxLen int
}

// CatalogSlugTargets перечисляет сущности каталога со слагами
var CatalogSlugTargets = []SlugTarget{
	{Table: FurnitureCategory{}.TableName(), Prefix: "category", MaxLen: categorySlugMaxLen},
	{Table: FurnitureItem{}.TableName(), Prefix: "item", MaxLen: itemSlugMaxLen},
}
