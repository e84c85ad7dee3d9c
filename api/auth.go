package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gos_landing/services"
)

// TokenRequest - тело запроса POST /api/token/
type TokenRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// AuthAPI выдает токены для API статистики
type AuthAPI struct {
	users  *services.UserService
	tokens *services.TokenService
	audit  *services.AuditService
	logger *zap.Logger
}

// NewAuthAPI создает новый экземпляр AuthAPI
func NewAuthAPI(users *services.UserService, tokens *services.TokenService, audit *services.AuditService, logger *zap.Logger) *AuthAPI {
	return &AuthAPI{users: users, tokens: tokens, audit: audit, logger: logger}
}

// ObtainToken обменивает логин и пароль на токен.
// POST /api/token/
func (api *AuthAPI) ObtainToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Некорректные данные: "+err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondError(c, http.StatusBadRequest, "Необходимо указать username и password")
		return
	}

	user, err := api.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			recordAudit(c, api.audit, api.logger, services.ActionUserLogin, 0,
				map[string]interface{}{"username": req.Username}, err)
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		api.logger.Error("authentication failed", zap.String("username", req.Username), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Ошибка аутентификации")
		return
	}

	token, err := api.tokens.Issue(user, 0)
	if err != nil {
		api.logger.Error("failed to issue token", zap.Uint("user_id", user.ID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Ошибка выпуска токена")
		return
	}

	recordAudit(c, api.audit, api.logger, services.ActionUserLogin, user.ID,
		map[string]interface{}{"username": user.Username}, nil)
	c.JSON(http.StatusOK, gin.H{"token": token})
}
