package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gos_landing/models"
	"gos_landing/services"
)

// AdminAPI - административные маршруты: локации, статистика, каталог, пользователи
type AdminAPI struct {
	locations *services.LocationService
	stats     *services.StatsService
	reports   *services.ReportService
	catalog   *services.CatalogService
	images    *services.ImageService
	users     *services.UserService
	qr        *services.QRCodeService
	audit     *services.AuditService
	cache     *services.CacheService
	logger    *zap.Logger
}

// NewAdminAPI создает новый экземпляр AdminAPI
func NewAdminAPI(svc *Services) *AdminAPI {
	return &AdminAPI{
		locations: svc.Locations,
		stats:     svc.Stats,
		reports:   svc.Reports,
		catalog:   svc.Catalog,
		images:    svc.Images,
		users:     svc.Users,
		qr:        svc.QRCodes,
		audit:     svc.Audit,
		cache:     svc.Cache,
		logger:    svc.Logger,
	}
}

// ========== Локации ==========

// ListLocations возвращает локации с владельцами и числом сканирований
func (api *AdminAPI) ListLocations(c *gin.Context) {
	locations, err := api.locations.List(c.Request.Context())
	if err != nil {
		api.internalError(c, "Ошибка при получении списка локаций", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": locations})
}

// GetLocation возвращает локацию по ID
func (api *AdminAPI) GetLocation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	location, err := api.locations.Get(c.Request.Context(), id)
	if err != nil {
		api.locationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": location})
}

// CreateLocation создает новую локацию
func (api *AdminAPI) CreateLocation(c *gin.Context) {
	var input services.LocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Некорректные данные: "+err.Error())
		return
	}
	location, err := api.locations.Create(c.Request.Context(), input)
	if err != nil {
		api.internalError(c, "Ошибка при создании локации", err)
		return
	}
	api.cache.InvalidateStats(c.Request.Context())
	api.record(c, services.ActionLocationCreate, location.ID, map[string]interface{}{"name": location.Name}, nil)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "Локация успешно создана", "data": location})
}

// UpdateLocation обновляет название и описание локации
func (api *AdminAPI) UpdateLocation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input services.LocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Некорректные данные: "+err.Error())
		return
	}
	location, err := api.locations.Update(c.Request.Context(), id, input)
	if err != nil {
		api.locationError(c, err)
		return
	}
	api.cache.InvalidateStats(c.Request.Context())
	api.record(c, services.ActionLocationUpdate, id, map[string]interface{}{"name": location.Name}, nil)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": location})
}

// DeleteLocation всегда отвечает 403: локации с историей не удаляются
func (api *AdminAPI) DeleteLocation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	err := api.locations.Delete(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	case errors.Is(err, models.ErrLocationProtected):
		api.record(c, services.ActionLocationDelete, id, nil, err)
		respondError(c, http.StatusForbidden, err.Error())
	default:
		api.locationError(c, err)
	}
}

type ownersRequest struct {
	UserIDs []uint `json:"user_ids"`
}

// SetLocationOwners назначает пользователей, которые видят статистику локации
func (api *AdminAPI) SetLocationOwners(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ownersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Некорректные данные: "+err.Error())
		return
	}
	location, err := api.locations.SetOwners(c.Request.Context(), id, req.UserIDs)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		api.locationError(c, err)
		return
	}
	api.cache.InvalidateStats(c.Request.Context())
	api.record(c, services.ActionLocationOwners, id, map[string]interface{}{"user_ids": req.UserIDs}, nil)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": location})
}

// LocationQRCode отдает QR-код локации для просмотра или скачивания (?download=1)
func (api *AdminAPI) LocationQRCode(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := api.locations.Get(c.Request.Context(), id); err != nil {
		api.locationError(c, err)
		return
	}
	png, err := api.qr.PNG(requestBaseURL(c), id)
	if err != nil {
		api.internalError(c, "Ошибка генерации QR-кода", err)
		return
	}
	if c.Query("download") != "" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="qrcode_location_%d.png"`, id))
	}
	c.Data(http.StatusOK, "image/png", png)
}

// LocationStatistics - страница статистики локации; ?format=json отдает JSON
func (api *AdminAPI) LocationStatistics(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	overview, err := api.stats.LocationOverview(c.Request.Context(), id)
	if err != nil {
		api.locationError(c, err)
		return
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": overview})
		return
	}

	png, err := api.qr.PNG(requestBaseURL(c), id)
	if err != nil {
		api.internalError(c, "Ошибка генерации QR-кода", err)
		return
	}
	c.HTML(http.StatusOK, "admin_location_stats.html", gin.H{
		"Title":    "Статистика " + overview.Location.Name,
		"Overview": overview,
		"QRCode":   base64.StdEncoding.EncodeToString(png),
		"VisitURL": api.qr.VisitURL(requestBaseURL(c), id),
	})
}

type qrCodeCard struct {
	Name string
	URL  string
	PNG  string
}

// QRCodes - страница со списком QR-кодов всех локаций
func (api *AdminAPI) QRCodes(c *gin.Context) {
	locations, err := api.locations.List(c.Request.Context())
	if err != nil {
		api.internalError(c, "Ошибка при получении списка локаций", err)
		return
	}

	base := requestBaseURL(c)
	cards := make([]qrCodeCard, 0, len(locations))
	for _, l := range locations {
		png, err := api.qr.PNG(base, l.ID)
		if err != nil {
			api.internalError(c, "Ошибка генерации QR-кода", err)
			return
		}
		cards = append(cards, qrCodeCard{
			Name: l.Name,
			URL:  api.qr.VisitURL(base, l.ID),
			PNG:  base64.StdEncoding.EncodeToString(png),
		})
	}
	c.HTML(http.StatusOK, "admin_qrcodes.html", gin.H{"Title": "QR-коды", "Codes": cards})
}

// ========== Статистика ==========

// Statistics возвращает ранжированную сводку по всем локациям.
// Окно задается ?range=today|yesterday|7d|30d|all или ?days=n (по умолчанию 30 дней).
func (api *AdminAPI) Statistics(c *gin.Context) {
	window, err := windowFromQuery(c, services.LastDays(30))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := api.stats.Summary(c.Request.Context(), window, services.AdminScope())
	if err != nil {
		api.internalError(c, "Ошибка получения статистики", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": summary})
}

// ExportStatistics выгружает сводку в Excel или PDF (?format=xlsx|pdf)
func (api *AdminAPI) ExportStatistics(c *gin.Context) {
	format, err := services.ParseReportFormat(c.Query("format"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	window, err := windowFromQuery(c, services.LastDays(30))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	file, err := api.reports.Export(c.Request.Context(), format, window, services.AdminScope())
	if err != nil {
		api.internalError(c, "Ошибка формирования отчета", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// ListScans возвращает сканирования, новые первыми.
// Фильтры: location_id, range/days (по умолчанию все время), limit, offset.
func (api *AdminAPI) ListScans(c *gin.Context) {
	filter, ok := scanFilterFromQuery(c)
	if !ok {
		return
	}
	scans, total, err := api.stats.ListScans(c.Request.Context(), filter)
	if err != nil {
		api.internalError(c, "Ошибка при получении сканирований", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": scans, "total": total})
}

// ListClicks возвращает клики по телефону, новые первыми
func (api *AdminAPI) ListClicks(c *gin.Context) {
	filter, ok := scanFilterFromQuery(c)
	if !ok {
		return
	}
	clicks, total, err := api.stats.ListClicks(c.Request.Context(), filter)
	if err != nil {
		api.internalError(c, "Ошибка при получении кликов", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": clicks, "total": total})
}

// ========== Каталог ==========

// ListCategories возвращает все категории, включая неактивные
func (api *AdminAPI) ListCategories(c *gin.Context) {
	categories, err := api.catalog.AllCategories(c.Request.Context())
	if err != nil {
		api.internalError(c, "Ошибка при получении категорий", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": categories})
}

// CreateCategory создает категорию
func (api *AdminAPI) CreateCategory(c *gin.Context) {
	var input services.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Некорректные данные: "+err.Error())
		return
	}
	category, err := api.catalog.CreateCategory(c.Request.Context(), input)
	if err != nil {
		api.internalError(c, "Ошибка при создании категории", err)
		return
	}
	api.record(c, services.ActionCategoryCreate, category.ID, map[string]interface{}{"name": category.Name, "slug": category.Slug}, nil)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": category})
}

// UpdateCategory обновляет категорию
func (api *AdminAPI) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input services.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Некорректные данные: "+err.Error())
		return
	}
	category, err := api.catalog.UpdateCategory(c.Request.Context(), id, input)
	if err != nil {
		api.catalogError(c, err)
		return
	}
	api.record(c, services.ActionCategoryUpdate, id, map[string]interface{}{"name": category.Name, "slug": category.Slug}, nil)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": category})
}

// UploadCategoryImage загружает изображение категории (поле формы image)
func (api *AdminAPI) UploadCategoryImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	path, ok := api.saveUpload(c, services.CategoryImageProfile)
	if !ok {
		return
	}
	if err := api.catalog.SetCategoryImage(c.Request.Context(), id, path); err != nil {
		api.discardUpload(path)
		api.catalogError(c, err)
		return
	}
	api.record(c, services.ActionCategoryImage, id, map[string]interface{}{"image": path}, nil)
	c.JSON(http.StatusOK, gin.H{"status": "success", "image": path})
}

// ListItems возвращает товары, опционально одной категории (?category_id=)
func (api *AdminAPI) ListItems(c *gin.Context) {
	categoryID, err := parseUintQuery(c, "category_id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Некорректный category_id")
		return
	}
	items, err := api.catalog.ListItems(c.Request.Context(), categoryID)
	if err != nil {
		api.internalError(c, "Ошибка при получении товаров", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": items})
}

// GetItem возвращает товар с галереей
func (api *AdminAPI) GetItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	item, err := api.catalog.GetItem(c.Request.Context(), id)
	if err != nil {
		api.catalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": item})
}

// CreateItem создает товар
func (api *AdminAPI) CreateItem(c *gin.Context) {
	var input services.ItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Некорректные данные: "+err.Error())
		return
	}
	item, err := api.catalog.CreateItem(c.Request.Context(), input)
	if err != nil {
		api.catalogError(c, err)
		return
	}
	api.record(c, services.ActionItemCreate, item.ID, map[string]interface{}{"name": item.Name, "slug": item.Slug}, nil)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": item})
}

// UpdateItem обновляет товар
func (api *AdminAPI) UpdateItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input services.ItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Некорректные данные: "+err.Error())
		return
	}
	item, err := api.catalog.UpdateItem(c.Request.Context(), id, input)
	if err != nil {
		api.catalogError(c, err)
		return
	}
	api.record(c, services.ActionItemUpdate, id, map[string]interface{}{"name": item.Name, "slug": item.Slug}, nil)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": item})
}

// UploadItemImage загружает основное изображение товара
func (api *AdminAPI) UploadItemImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	path, ok := api.saveUpload(c, services.ItemImageProfile)
	if !ok {
		return
	}
	if err := api.catalog.SetItemMainImage(c.Request.Context(), id, path); err != nil {
		api.discardUpload(path)
		api.catalogError(c, err)
		return
	}
	api.record(c, services.ActionItemImage, id, map[string]interface{}{"image": path}, nil)
	c.JSON(http.StatusOK, gin.H{"status": "success", "image": path})
}

// AddItemGalleryImage добавляет изображение в галерею товара (поля формы image, alt_text)
func (api *AdminAPI) AddItemGalleryImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	path, ok := api.saveUpload(c, services.GalleryImageProfile)
	if !ok {
		return
	}
	image, err := api.catalog.AddItemImage(c.Request.Context(), id, path, c.PostForm("alt_text"))
	if err != nil {
		api.discardUpload(path)
		api.catalogError(c, err)
		return
	}
	api.record(c, services.ActionItemGallery, id, map[string]interface{}{"image": path}, nil)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": image})
}

// ========== Пользователи ==========

// ListUsers возвращает пользователей с их локациями
func (api *AdminAPI) ListUsers(c *gin.Context) {
	users, err := api.users.ListUsers(c.Request.Context())
	if err != nil {
		api.internalError(c, "Ошибка при получении пользователей", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": users})
}

// CreateUser создает пользователя с bcrypt паролем
func (api *AdminAPI) CreateUser(c *gin.Context) {
	var params services.CreateUserParams
	if err := c.ShouldBindJSON(&params); err != nil {
		respondError(c, http.StatusBadRequest, "Некорректные данные: "+err.Error())
		return
	}
	user, err := api.users.CreateUser(c.Request.Context(), params)
	switch {
	case err == nil:
		api.record(c, services.ActionUserCreate, user.ID,
			map[string]interface{}{"username": user.Username, "is_staff": user.IsStaff}, nil)
		c.JSON(http.StatusCreated, gin.H{"status": "success", "data": user})
	case errors.Is(err, services.ErrUserExists):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrLocationNotFound):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		api.internalError(c, "Ошибка при создании пользователя", err)
	}
}

// ListAudit возвращает журнал действий
// (?action=, ?resource=, ?user_id=, ?since=2024-01-31 или RFC3339, ?limit=, ?offset=)
func (api *AdminAPI) ListAudit(c *gin.Context) {
	userID, err := parseUintQuery(c, "user_id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Некорректный user_id")
		return
	}
	since, err := parseTimeQuery(c, "since", api.stats.Location())
	if err != nil {
		respondError(c, http.StatusBadRequest, "Некорректный since: ожидается дата 2006-01-02 или RFC3339")
		return
	}
	limit, offset, err := parsePage(c, 0)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	logs, total, err := api.audit.List(c.Request.Context(), services.AuditFilter{
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		UserID:   userID,
		Since:    since,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		api.internalError(c, "Ошибка при получении журнала", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": logs, "total": total})
}

// ========== Вспомогательные ==========

func (api *AdminAPI) record(c *gin.Context, action services.AuditAction, resourceID uint, details map[string]interface{}, err error) {
	recordAudit(c, api.audit, api.logger, action, resourceID, details, err)
}

// saveUpload сохраняет файл из поля формы image. При ошибке сам отвечает клиенту.
func (api *AdminAPI) saveUpload(c *gin.Context, profile services.ImageProfile) (string, bool) {
	header, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Файл изображения обязателен (поле image)")
		return "", false
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Не удалось прочитать файл")
		return "", false
	}
	defer file.Close()

	path, err := api.images.Save(file, profile)
	switch {
	case err == nil:
		return path, true
	case errors.Is(err, services.ErrImageTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, services.ErrUnsupportedImage):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		api.internalError(c, "Ошибка сохранения изображения", err)
	}
	return "", false
}

func (api *AdminAPI) discardUpload(path string) {
	if err := os.Remove(api.images.Path(path)); err != nil && !os.IsNotExist(err) {
		api.logger.Warn("failed to remove orphan upload", zap.String("path", path), zap.Error(err))
	}
}

func (api *AdminAPI) locationError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrLocationNotFound) {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	api.internalError(c, "Ошибка обработки локации", err)
}

func (api *AdminAPI) catalogError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrCategoryNotFound) || errors.Is(err, services.ErrItemNotFound) {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	api.internalError(c, "Ошибка обработки каталога", err)
}

func (api *AdminAPI) internalError(c *gin.Context, message string, err error) {
	api.logger.Error(message, zap.String("path", c.Request.URL.Path), zap.Error(err))
	respondError(c, http.StatusInternalServerError, message)
}

// windowFromQuery разбирает окно из ?range= или ?days=
func windowFromQuery(c *gin.Context, fallback services.Window) (services.Window, error) {
	if label := c.Query("range"); label != "" {
		return services.ParseRange(label), nil
	}
	if c.Query("days") == "" {
		return fallback, nil
	}
	days, err := services.ParseDays(c.Query("days"), 0)
	if err != nil {
		return services.Window{}, err
	}
	return services.LastDays(days), nil
}

func scanFilterFromQuery(c *gin.Context) (services.ScanFilter, bool) {
	var filter services.ScanFilter

	locationID, err := parseUintQuery(c, "location_id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Некорректный location_id")
		return filter, false
	}
	window, err := windowFromQuery(c, services.AllTime())
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return filter, false
	}

	limit, offset, err := parsePage(c, 100)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return filter, false
	}

	filter.LocationID = locationID
	filter.Window = window
	filter.Limit = limit
	filter.Offset = offset
	return filter, true
}
