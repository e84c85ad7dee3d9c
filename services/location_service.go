package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"gos_landing/models"
)

// LocationService управляет точками размещения QR-кодов
type LocationService struct {
	db *gorm.DB
}

// NewLocationService создает новый экземпляр LocationService
func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{db: db}
}

// LocationInput - поля локации, редактируемые в админке
type LocationInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// LocationListItem - строка списка локаций с числом сканирований
type LocationListItem struct {
	models.Location
	ScanCount int64 `json:"scan_count"`
}

// List возвращает все локации с владельцами и общим числом сканирований
func (s *LocationService) List(ctx context.Context) ([]LocationListItem, error) {
	var locations []models.Location
	if err := s.db.WithContext(ctx).Preload("Users").Order("name ASC, id ASC").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("ошибка загрузки локаций: %w", err)
	}

	var rows []groupCount
	err := s.db.WithContext(ctx).Model(&models.QRCodeScan{}).
		Select("location_id, COUNT(*) AS count").
		Group("location_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета сканирований: %w", err)
	}
	counts := toCountMap(rows)

	result := make([]LocationListItem, len(locations))
	for i, l := range locations {
		result[i] = LocationListItem{Location: l, ScanCount: counts[l.ID]}
	}
	return result, nil
}

// Get возвращает локацию с владельцами
func (s *LocationService) Get(ctx context.Context, id uint) (*models.Location, error) {
	var location models.Location
	err := s.db.WithContext(ctx).Preload("Users").First(&location, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &location, nil
}

// Create создает локацию
func (s *LocationService) Create(ctx context.Context, input LocationInput) (*models.Location, error) {
	location := &models.Location{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
	}
	if err := s.db.WithContext(ctx).Create(location).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания локации: %w", err)
	}
	return location, nil
}

// Update меняет название и описание локации
func (s *LocationService) Update(ctx context.Context, id uint, input LocationInput) (*models.Location, error) {
	location, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(location).Updates(map[string]interface{}{
		"name":        strings.TrimSpace(input.Name),
		"description": input.Description,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления локации: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete всегда отказывает: хук модели защищает историю сканирований
func (s *LocationService) Delete(ctx context.Context, id uint) error {
	location, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(location).Error
}

// SetOwners заменяет список пользователей, видящих статистику локации
func (s *LocationService) SetOwners(ctx context.Context, id uint, userIDs []uint) (*models.Location, error) {
	location, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var users []models.User
	if len(userIDs) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		if len(users) != len(uniqueIDs(userIDs)) {
			return nil, ErrUserNotFound
		}
	}

	association := s.db.WithContext(ctx).Model(location).Association("Users")
	if len(users) == 0 {
		err = association.Clear()
	} else {
		err = association.Replace(users)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка назначения владельцев: %w", err)
	}
	return s.Get(ctx, id)
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
