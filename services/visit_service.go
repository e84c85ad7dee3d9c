package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gos_landing/models"
)

// VisitService записывает переходы по QR-кодам и клики по телефону
type VisitService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewVisitService создает новый экземпляр VisitService
func NewVisitService(db *gorm.DB, logger *zap.Logger) *VisitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisitService{db: db, logger: logger}
}

// RecordVisit создает сканирование локации со свежим токеном визита.
// Для неизвестной локации возвращает ErrLocationNotFound и ничего не пишет.
func (s *VisitService) RecordVisit(ctx context.Context, locationID uint, ip, userAgent string) (*models.QRCodeScan, error) {
	var location models.Location
	if err := s.db.WithContext(ctx).Select("id").First(&location, locationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("ошибка поиска локации: %w", err)
	}

	scan := &models.QRCodeScan{LocationID: location.ID, UserAgent: userAgent}
	if ip != "" {
		scan.IPAddress = &ip
	}
	if err := s.db.WithContext(ctx).Create(scan).Error; err != nil {
		return nil, fmt.Errorf("ошибка записи сканирования: %w", err)
	}

	s.logger.Debug("scan recorded",
		zap.Uint("location_id", location.ID),
		zap.String("visit_id", scan.VisitID))
	return scan, nil
}

// RecordPhoneClick добавляет клик к сканированию с указанным токеном.
// Каждый вызов создает новый клик.
func (s *VisitService) RecordPhoneClick(ctx context.Context, visitID string) (*models.PhoneClick, error) {
	visitID = strings.TrimSpace(visitID)
	if visitID == "" {
		return nil, ErrVisitIDRequired
	}

	var scan models.QRCodeScan
	if err := s.db.WithContext(ctx).Select("id").Where("visit_id = ?", visitID).First(&scan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVisitNotFound
		}
		return nil, fmt.Errorf("ошибка поиска визита: %w", err)
	}

	click := &models.PhoneClick{ScanID: scan.ID}
	if err := s.db.WithContext(ctx).Create(click).Error; err != nil {
		return nil, fmt.Errorf("ошибка записи клика: %w", err)
	}
	return click, nil
}
