package models

import "time"

// AuditLog - запись журнала действий администраторов и входов по токену
type AuditLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
	UserID     *uint     `json:"user_id" gorm:"index"`
	Username   string    `json:"username" gorm:"size:150"`
	Action     string    `json:"action" gorm:"not null;size:50;index"`
	Resource   string    `json:"resource" gorm:"not null;size:50;index"`
	ResourceID *uint     `json:"resource_id" gorm:"index"`
	IPAddress  string    `json:"ip_address" gorm:"size:45"`
	UserAgent  string    `json:"user_agent" gorm:"size:500"`
	Details    string    `json:"details" gorm:"type:text"`
	Success    bool      `json:"success" gorm:"not null;index"`
	ErrorMsg   string    `json:"error_message" gorm:"size:1000"`
}

// TableName задает имя таблицы для модели AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
