package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location представляет точку размещения QR-кода (магазин, стенд, выставка)
type Location struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	Name        string    `json:"name" gorm:"not null;type:varchar(100)"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`

	// Владельцы локации видят ее статистику в боте и API
	Users []User `json:"users,omitempty" gorm:"many2many:location_users;"`
}

// TableName задает имя таблицы для модели Location
func (Location) TableName() string {
	return "locations"
}

// BeforeDelete запрещает удаление локаций: сканирования должны ссылаться на существующую точку
func (l *Location) BeforeDelete(tx *gorm.DB) error {
	return ErrLocationProtected
}

// QRCodeScan фиксирует один переход по QR-коду
type QRCodeScan struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	LocationID uint      `json:"location_id" gorm:"not null;index"`
	Location   *Location `json:"location,omitempty" gorm:"foreignKey:LocationID;constraint:OnDelete:RESTRICT"`

	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
	IPAddress *string   `json:"ip_address" gorm:"type:varchar(45)"`
	UserAgent string    `json:"user_agent" gorm:"type:text"`

	// VisitID - токен визита, по которому лендинг привязывает клик к сканированию
	VisitID string `json:"visit_id" gorm:"type:varchar(36);uniqueIndex;not null"`
}

// TableName задает имя таблицы для модели QRCodeScan
func (QRCodeScan) TableName() string {
	return "qr_code_scans"
}

// BeforeCreate выдает токен визита и серверное время сканирования
func (s *QRCodeScan) BeforeCreate(tx *gorm.DB) error {
	if s.VisitID == "" {
		s.VisitID = uuid.NewString()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	// Время храним в UTC, чтобы сравнение диапазонов совпадало в sqlite и postgres
	s.Timestamp = s.Timestamp.UTC()
	return nil
}

// BeforeUpdate запрещает изменение сканирований
func (s *QRCodeScan) BeforeUpdate(tx *gorm.DB) error {
	return ErrScanImmutable
}

// PhoneClick фиксирует нажатие на номер телефона после сканирования
type PhoneClick struct {
	ID        uint        `json:"id" gorm:"primarykey"`
	ScanID    uint        `json:"scan_id" gorm:"not null;index"`
	Scan      *QRCodeScan `json:"scan,omitempty" gorm:"foreignKey:ScanID;constraint:OnDelete:RESTRICT"`
	Timestamp time.Time   `json:"timestamp" gorm:"not null;index"`
}

// TableName задает имя таблицы для модели PhoneClick
func (PhoneClick) TableName() string {
	return "phone_clicks"
}

// BeforeCreate проставляет серверное время клика
func (c *PhoneClick) BeforeCreate(tx *gorm.DB) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	c.Timestamp = c.Timestamp.UTC()
	return nil
}

// BeforeUpdate запрещает изменение кликов
func (c *PhoneClick) BeforeUpdate(tx *gorm.DB) error {
	return ErrScanImmutable
}
