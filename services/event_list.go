package services

import (
	"context"
	"fmt"

	"gos_landing/models"
)

// ScanFilter - фильтр списка сканирований в админке
type ScanFilter struct {
	LocationID uint
	Window     Window
	Limit      int
	Offset     int
}

// ListScans возвращает сканирования, новые первыми
func (s *StatsService) ListScans(ctx context.Context, filter ScanFilter) ([]models.QRCodeScan, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.QRCodeScan{})
	if filter.LocationID != 0 {
		query = query.Where("location_id = ?", filter.LocationID)
	}
	from, to := filter.Window.Bounds(s.now(), s.loc)
	query = applyBounds(query, "timestamp", from, to)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета сканирований: %w", err)
	}

	var scans []models.QRCodeScan
	err := query.Preload("Location").Order("timestamp DESC, id DESC").
		Limit(normalizeLimit(filter.Limit)).Offset(filter.Offset).
		Find(&scans).Error
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка загрузки сканирований: %w", err)
	}
	return scans, total, nil
}

// ListClicks возвращает клики, новые первыми
func (s *StatsService) ListClicks(ctx context.Context, filter ScanFilter) ([]models.PhoneClick, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PhoneClick{}).
		Joins("JOIN qr_code_scans ON qr_code_scans.id = phone_clicks.scan_id")
	if filter.LocationID != 0 {
		query = query.Where("qr_code_scans.location_id = ?", filter.LocationID)
	}
	from, to := filter.Window.Bounds(s.now(), s.loc)
	query = applyBounds(query, "phone_clicks.timestamp", from, to)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета кликов: %w", err)
	}

	var clicks []models.PhoneClick
	err := query.Preload("Scan.Location").Order("phone_clicks.timestamp DESC, phone_clicks.id DESC").
		Limit(normalizeLimit(filter.Limit)).Offset(filter.Offset).
		Find(&clicks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка загрузки кликов: %w", err)
	}
	return clicks, total, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
