package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User представляет сотрудника или владельца локаций
type User struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Основные поля
	Username string `json:"username" gorm:"uniqueIndex;not null;type:varchar(150)"`
	Password string `json:"-" gorm:"not null"` // bcrypt хэш, в JSON не отдается

	FirstName   string `json:"first_name" gorm:"type:varchar(150)"`
	LastName    string `json:"last_name" gorm:"type:varchar(150)"`
	PhoneNumber string `json:"phone_number" gorm:"type:varchar(15);index"`

	// Привязка Telegram чата (заполняется при регистрации через контакт)
	TelegramID       *int64 `json:"telegram_id" gorm:"uniqueIndex"`
	TelegramUsername string `json:"telegram_username" gorm:"type:varchar(64)"`

	IsStaff  bool `json:"is_staff"`
	IsActive bool `json:"is_active"`

	Locations []Location `json:"locations,omitempty" gorm:"many2many:location_users;"`
}

// TableName задает имя таблицы для модели User
func (User) TableName() string {
	return "users"
}

// BeforeSave хранит номер телефона только цифрами
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.PhoneNumber = NormalizePhone(u.PhoneNumber)
	return nil
}

// DisplayName возвращает имя для сообщений бота
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// NormalizePhone оставляет в номере только цифры: "+998 (90) 356-43-34" -> "998903564334"
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
