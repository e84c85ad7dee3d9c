package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gos_landing/services"
)

// VisitAPI обрабатывает переходы по QR-кодам и клики по телефону
type VisitAPI struct {
	visits    *services.VisitService
	locations *services.LocationService
	qr        *services.QRCodeService
	logger    *zap.Logger
}

// NewVisitAPI создает новый экземпляр VisitAPI
func NewVisitAPI(visits *services.VisitService, locations *services.LocationService, qr *services.QRCodeService, logger *zap.Logger) *VisitAPI {
	return &VisitAPI{visits: visits, locations: locations, qr: qr, logger: logger}
}

// Visit записывает сканирование и всегда перенаправляет на лендинг.
// GET /visit/:location_id/
func (api *VisitAPI) Visit(c *gin.Context) {
	target := "/"

	id, err := strconv.ParseUint(c.Param("location_id"), 10, 64)
	if err != nil {
		api.logger.Info("visit with malformed location id", zap.String("location_id", c.Param("location_id")))
		c.Redirect(http.StatusFound, target)
		return
	}

	scan, err := api.visits.RecordVisit(c.Request.Context(), uint(id), c.ClientIP(), c.Request.UserAgent())
	switch {
	case err == nil:
		target = "/?visit_id=" + url.QueryEscape(scan.VisitID)
	case errors.Is(err, services.ErrLocationNotFound):
		api.logger.Info("visit to unknown location", zap.Uint64("location_id", id))
	default:
		api.logger.Error("failed to record visit", zap.Uint64("location_id", id), zap.Error(err))
	}

	c.Redirect(http.StatusFound, target)
}

type phoneClickRequest struct {
	VisitID string `json:"visit_id" form:"visit_id"`
}

// RecordPhoneClick записывает клик по номеру телефона для визита.
// POST /api/record-phone-click/
func (api *VisitAPI) RecordPhoneClick(c *gin.Context) {
	var req phoneClickRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "visit_id is required")
		return
	}

	_, err := api.visits.RecordPhoneClick(c.Request.Context(), req.VisitID)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"status": "success"})
	case errors.Is(err, services.ErrVisitIDRequired):
		respondError(c, http.StatusBadRequest, "visit_id is required")
	case errors.Is(err, services.ErrVisitNotFound):
		respondError(c, http.StatusNotFound, "Visit not found")
	default:
		api.logger.Error("failed to record phone click", zap.String("visit_id", req.VisitID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to record phone click")
	}
}

// QRCode отдает PNG с QR-кодом локации. ?download=1 - скачивание файлом.
// GET /qrcode/:location_id/
func (api *VisitAPI) QRCode(c *gin.Context) {
	id, ok := parseIDParam(c, "location_id")
	if !ok {
		return
	}
	if _, err := api.locations.Get(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrLocationNotFound) {
			respondError(c, http.StatusNotFound, "Локация не найдена")
			return
		}
		api.logger.Error("failed to load location", zap.Uint("location_id", id), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Ошибка загрузки локации")
		return
	}

	png, err := api.qr.PNG(requestBaseURL(c), id)
	if err != nil {
		api.logger.Error("failed to render qr code", zap.Uint("location_id", id), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Ошибка генерации QR-кода")
		return
	}

	if c.Query("download") != "" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="qrcode_location_%d.png"`, id))
	}
	c.Data(http.StatusOK, "image/png", png)
}
