package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gos_landing/models"
	"gos_landing/services"
)

// AuthMiddleware проверяет bearer токены API
type AuthMiddleware struct {
	tokens *services.TokenService
	users  *services.UserService
}

// NewAuthMiddleware создает новый экземпляр AuthMiddleware
func NewAuthMiddleware(tokens *services.TokenService, users *services.UserService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// ExtractToken извлекает токен из заголовка Authorization.
// Поддерживаются префиксы "Bearer " и "Token ".
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	switch {
	case strings.HasPrefix(authHeader, "Bearer "):
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	case strings.HasPrefix(authHeader, "Token "):
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Token "))
	default:
		return strings.TrimSpace(authHeader)
	}
}

// RequireAuth middleware для проверки аутентификации
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Authorization header is required",
			})
			return
		}

		claims, err := am.tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Invalid or expired token",
			})
			return
		}

		// Пользователь мог быть деактивирован после выпуска токена
		user, err := am.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			status := http.StatusInternalServerError
			message := "Failed to load user"
			if errors.Is(err, services.ErrUserNotFound) {
				status = http.StatusUnauthorized
				message = "User not found"
			}
			c.AbortWithStatusJSON(status, gin.H{"status": "error", "error": message})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "User is inactive"})
			return
		}

		// Сохраняем информацию о пользователе в контексте
		c.Set("user", user)
		c.Set("user_id", user.ID)

		c.Next()
	}
}

// RequireStaff пропускает только сотрудников. Ставится после RequireAuth.
func (am *AuthMiddleware) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetCurrentUser(c)
		if user == nil || !user.IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"status": "error",
				"error":  "Staff permissions required",
			})
			return
		}
		c.Next()
	}
}

// GetCurrentUser возвращает текущего пользователя из контекста
func GetCurrentUser(c *gin.Context) *models.User {
	if user, exists := c.Get("user"); exists {
		if u, ok := user.(*models.User); ok {
			return u
		}
	}
	return nil
}
