package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gos_landing/middleware"
	"gos_landing/services"
)

// respondError отвечает ошибкой в общем формате API
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"status": "error", "error": message})
}

// parseIDParam извлекает числовой идентификатор из параметра маршрута.
// При ошибке сам отвечает 400.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "Некорректный идентификатор")
		return 0, false
	}
	return uint(id), true
}

// parseUintQuery разбирает необязательный числовой query параметр; пустое значение - 0
func parseUintQuery(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	return uint(id), err
}

var errBadPage = errors.New("limit и offset должны быть неотрицательными целыми числами")

// parsePage разбирает ?limit= и ?offset=. Пустой limit - defaultLimit, пустой offset - 0.
func parsePage(c *gin.Context, defaultLimit int) (limit, offset int, err error) {
	limit, offset = defaultLimit, 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return 0, 0, errBadPage
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, errBadPage
		}
	}
	return limit, offset, nil
}

// parseTimeQuery разбирает необязательную дату: RFC3339 или 2006-01-02
// (начало дня в часовом поясе loc). Пустое значение - nil.
func parseTimeQuery(c *gin.Context, name string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// requestBaseURL восстанавливает адрес сайта из запроса (схема и хост)
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}

// recordAudit пишет действие в журнал. Ошибка записи журнала не влияет на ответ.
func recordAudit(c *gin.Context, audit *services.AuditService, logger *zap.Logger, action services.AuditAction, resourceID uint, details map[string]interface{}, actionErr error) {
	entry := services.AuditEntry{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Action:    action,
		Details:   details,
		Err:       actionErr,
	}
	if user := middleware.GetCurrentUser(c); user != nil {
		id := user.ID
		entry.UserID = &id
		entry.Username = user.Username
	}
	if resourceID != 0 {
		entry.ResourceID = &resourceID
	}
	if err := audit.Log(c.Request.Context(), entry); err != nil {
		logger.Warn("failed to write audit log", zap.String("action", string(action)), zap.Error(err))
	}
}
