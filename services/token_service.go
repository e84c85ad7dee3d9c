package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gos_landing/models"
)

// TokenClaims - содержимое bearer токена API
type TokenClaims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	IsStaff  bool   `json:"staff"`
	jwt.RegisteredClaims
}

// TokenService выпускает и проверяет JWT токены для /api/
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenService создает новый экземпляр TokenService
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issue выпускает токен пользователю. ttl == 0 - срок по умолчанию,
// отрицательный ttl - токен без срока действия (для бота).
func (ts *TokenService) Issue(user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		IsStaff:  user.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatUint(uint64(user.ID), 10),
			Issuer:   ts.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	switch {
	case ttl == 0:
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ts.ttl))
	case ttl > 0:
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись, издателя и срок действия токена
func (ts *TokenService) Parse(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return ts.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ts.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: срок действия истек", ErrInvalidToken)
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
