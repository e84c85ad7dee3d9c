package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gos_landing/middleware"
	"gos_landing/services"
)

// StatsAPI отдает статистику локаций по токену
type StatsAPI struct {
	stats  *services.StatsService
	logger *zap.Logger
}

// NewStatsAPI создает новый экземпляр StatsAPI
func NewStatsAPI(stats *services.StatsService, logger *zap.Logger) *StatsAPI {
	return &StatsAPI{stats: stats, logger: logger}
}

// LocationStats возвращает итоги за все время и за последние days дней.
// Сотрудник видит все локации (или локации пользователя чата telegram_id),
// остальные - только свои; telegram_id от не сотрудника отклоняется с 403.
// GET /api/location-stats/?days=30
func (api *StatsAPI) LocationStats(c *gin.Context) {
	days, err := services.ParseDays(c.Query("days"), 30)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user := middleware.GetCurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "Authorization required")
		return
	}

	scope := services.UserScope(user.ID)
	if raw := c.Query("telegram_id"); raw != "" {
		// Чужой чат может запрашивать только сотрудник
		if !user.IsStaff {
			respondError(c, http.StatusForbidden, "telegram_id доступен только сотрудникам")
			return
		}
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Некорректный telegram_id")
			return
		}
		scope = services.TelegramScope(chatID)
	} else if user.IsStaff {
		scope = services.AdminScope()
	}

	result, err := api.stats.APIStats(c.Request.Context(), days, scope)
	if err != nil {
		if errors.Is(err, services.ErrNotRegistered) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		api.logger.Error("failed to build location stats", zap.Int("days", days), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Ошибка получения статистики")
		return
	}

	c.JSON(http.StatusOK, result)
}
