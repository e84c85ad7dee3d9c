package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gos_landing/models"
)

// phoneMatchDigits - сколько последних цифр номера достаточно для совпадения
// (национальная часть номера без кода страны)
const phoneMatchDigits = 9

// UserService управляет учетными записями и привязкой Telegram
type UserService struct {
	db *gorm.DB
}

// NewUserService создает новый экземпляр UserService
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateUserParams - параметры создания пользователя
type CreateUserParams struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsStaff     bool   `json:"is_staff"`
	LocationIDs []uint `json:"location_ids"`
}

// CreateUser создает активного пользователя с bcrypt хэшем пароля
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" || params.Password == "" {
		return nil, fmt.Errorf("имя пользователя и пароль обязательны")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хэширования пароля: %w", err)
	}

	user := &models.User{
		Username:    username,
		Password:    string(hash),
		PhoneNumber: params.PhoneNumber,
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		IsStaff:     params.IsStaff,
		IsActive:    true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if len(params.LocationIDs) == 0 {
			return nil
		}
		var locations []models.Location
		if err := tx.Find(&locations, params.LocationIDs).Error; err != nil {
			return err
		}
		if len(locations) != len(params.LocationIDs) {
			return ErrLocationNotFound
		}
		return tx.Model(user).Association("Locations").Replace(locations)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate проверяет логин и пароль активного пользователя
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ? AND is_active = ?", username, true).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetByUsername возвращает пользователя по имени
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID возвращает пользователя по идентификатору
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByTelegramID возвращает активного пользователя, привязанного к чату
func (s *UserService) FindByTelegramID(ctx context.Context, chatID int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("telegram_id = ? AND is_active = ?", chatID, true).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	return &user, nil
}

// RegisterTelegram привязывает чат к пользователю с совпадающим номером телефона.
// Сначала ищется точное совпадение, затем совпадение по национальной части номера.
func (s *UserService) RegisterTelegram(ctx context.Context, phone string, chatID int64, telegramUsername string) (*models.User, error) {
	digits := models.NormalizePhone(phone)
	if digits == "" {
		return nil, ErrNotRegistered
	}

	db := s.db.WithContext(ctx)
	var user models.User
	err := db.Where("phone_number = ? AND is_active = ?", digits, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && len(digits) >= phoneMatchDigits {
		var candidates []models.User
		suffix := digits[len(digits)-phoneMatchDigits:]
		if err := db.Where("phone_number LIKE ? AND is_active = ?", "%"+suffix, true).Limit(2).Find(&candidates).Error; err != nil {
			return nil, err
		}
		// Неоднозначное совпадение не привязываем
		if len(candidates) != 1 {
			return nil, ErrNotRegistered
		}
		user = candidates[0]
		err = nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		// Чат мог быть привязан к другой учетной записи
		if err := tx.Model(&models.User{}).Where("telegram_id = ? AND id <> ?", chatID, user.ID).
			Update("telegram_id", nil).Error; err != nil {
			return err
		}
		return tx.Model(&user).Updates(map[string]interface{}{
			"telegram_id":       chatID,
			"telegram_username": telegramUsername,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка привязки Telegram: %w", err)
	}
	user.TelegramID = &chatID
	user.TelegramUsername = telegramUsername
	return &user, nil
}

// StaffWithTelegram возвращает активных сотрудников с привязанным Telegram
func (s *UserService) StaffWithTelegram(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("is_staff = ? AND is_active = ? AND telegram_id IS NOT NULL", true, true).
		Order("id ASC").Find(&users).Error
	return users, err
}

// ListUsers возвращает пользователей с их локациями
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Preload("Locations").Order("username ASC").Find(&users).Error
	return users, err
}

// SetPassword меняет пароль пользователя
func (s *UserService) SetPassword(ctx context.Context, userID uint, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ошибка хэширования пароля: %w", err)
	}
	return s.db.WithContext(ctx).Model(&models.User{ID: userID}).Update("password", string(hash)).Error
}
