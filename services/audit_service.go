package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gos_landing/models"
)

// AuditAction типы действий для аудита
type AuditAction string

const (
	// Пользователи
	ActionUserLogin  AuditAction = "user.login"
	ActionUserCreate AuditAction = "user.create"

	// Локации
	ActionLocationCreate AuditAction = "location.create"
	ActionLocationUpdate AuditAction = "location.update"
	ActionLocationDelete AuditAction = "location.delete"
	ActionLocationOwners AuditAction = "location.owners"

	// Каталог
	ActionCategoryCreate AuditAction = "category.create"
	ActionCategoryUpdate AuditAction = "category.update"
	ActionCategoryImage  AuditAction = "category.image"
	ActionItemCreate     AuditAction = "item.create"
	ActionItemUpdate     AuditAction = "item.update"
	ActionItemImage      AuditAction = "item.image"
	ActionItemGallery    AuditAction = "item.gallery"
)

// Resource возвращает тип сущности действия: "location.create" -> "location"
func (a AuditAction) Resource() string {
	resource, _, _ := strings.Cut(string(a), ".")
	return resource
}

// AuditService сервис для аудит логов
type AuditService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAuditService создает новый сервис аудита
func NewAuditService(db *gorm.DB, log *zap.Logger) *AuditService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditService{db: db, logger: log}
}

// AuditEntry контекст для аудита
type AuditEntry struct {
	UserID     *uint
	Username   string
	IPAddress  string
	UserAgent  string
	Action     AuditAction
	ResourceID *uint
	Details    map[string]interface{}
	Err        error
}

// Log записывает аудит лог. Запись дублируется в zap.
func (as *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	auditLog := &models.AuditLog{
		UserID:     entry.UserID,
		Username:   entry.Username,
		Action:     string(entry.Action),
		Resource:   entry.Action.Resource(),
		ResourceID: entry.ResourceID,
		IPAddress:  entry.IPAddress,
		UserAgent:  truncate(entry.UserAgent, 500),
		Success:    entry.Err == nil,
	}
	if entry.Err != nil {
		auditLog.ErrorMsg = truncate(entry.Err.Error(), 1000)
	}

	// Сериализуем детали
	if entry.Details != nil {
		if detailsJSON, err := json.Marshal(entry.Details); err == nil {
			auditLog.Details = string(detailsJSON)
		}
	}

	fields := []zap.Field{
		zap.String("action", auditLog.Action),
		zap.String("user", entry.Username),
		zap.Bool("success", auditLog.Success),
	}
	if entry.ResourceID != nil {
		fields = append(fields, zap.Uint("resource_id", *entry.ResourceID))
	}
	if entry.Err != nil {
		fields = append(fields, zap.Error(entry.Err))
	}
	as.logger.Info("audit", fields...)

	if err := as.db.WithContext(ctx).Create(auditLog).Error; err != nil {
		return fmt.Errorf("ошибка записи аудит лога: %w", err)
	}
	return nil
}

// AuditFilter фильтры для поиска аудит логов
type AuditFilter struct {
	Action   string
	Resource string
	UserID   uint
	Since    *time.Time
	Limit    int
	Offset   int
}

// List возвращает записи журнала, новые первыми, и их общее количество
func (as *AuditService) List(ctx context.Context, filter AuditFilter) ([]models.AuditLog, int64, error) {
	query := as.db.WithContext(ctx).Model(&models.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Resource != "" {
		query = query.Where("resource = ?", filter.Resource)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета записей аудита: %w", err)
	}

	var logs []models.AuditLog
	err := query.Order("created_at DESC, id DESC").
		Limit(normalizeLimit(filter.Limit)).Offset(filter.Offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка загрузки записей аудита: %w", err)
	}
	return logs, total, nil
}

// CleanupOldLogs удаляет записи старше retentionDays дней. Возвращает число удаленных записей.
func (as *AuditService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("срок хранения должен быть положительным")
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := as.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("ошибка очистки аудит логов: %w", result.Error)
	}
	as.logger.Info("audit logs cleaned up", zap.Int64("deleted", result.RowsAffected), zap.Int("retention_days", retentionDays))
	return result.RowsAffected, nil
}

// truncate обрезает строку до max байт, не разрывая UTF-8 символ
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
