package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gos_landing/services"
)

const (
	visitCookie     = "visit_id"
	visitCookieTTL  = 24 * 60 * 60
	featuredOnIndex = 8
)

// CatalogAPI отдает HTML страницы лендинга и каталога мебели
type CatalogAPI struct {
	catalog *services.CatalogService
	phone   string
	logger  *zap.Logger
}

// NewCatalogAPI создает новый экземпляр CatalogAPI. phone - номер для звонка на страницах.
func NewCatalogAPI(catalog *services.CatalogService, phone string, logger *zap.Logger) *CatalogAPI {
	return &CatalogAPI{catalog: catalog, phone: phone, logger: logger}
}

// Landing - главная страница. Токен визита из ?visit_id= встраивается в
// страницу для скрипта учета кликов и запоминается в cookie.
// GET /
func (api *CatalogAPI) Landing(c *gin.Context) {
	ctx := c.Request.Context()

	categories, err := api.catalog.ActiveCategories(ctx)
	if err != nil {
		api.serverError(c, "failed to load categories", err)
		return
	}
	featured, err := api.catalog.FeaturedItems(ctx, featuredOnIndex)
	if err != nil {
		api.serverError(c, "failed to load featured items", err)
		return
	}

	if visitID := c.Query("visit_id"); visitID != "" {
		c.SetCookie(visitCookie, visitID, visitCookieTTL, "/", "", false, false)
	}

	c.HTML(http.StatusOK, "landing.html", api.page(c, gin.H{
		"Categories": categories,
		"Featured":   featured,
	}))
}

// Catalog - список активных категорий.
// GET /catalog/
func (api *CatalogAPI) Catalog(c *gin.Context) {
	categories, err := api.catalog.ActiveCategories(c.Request.Context())
	if err != nil {
		api.serverError(c, "failed to load categories", err)
		return
	}
	c.HTML(http.StatusOK, "catalog.html", api.page(c, gin.H{
		"Title":      "Каталог",
		"Categories": categories,
	}))
}

// Category - активная категория с товарами.
// GET /catalog/:category_slug/
func (api *CatalogAPI) Category(c *gin.Context) {
	category, err := api.catalog.CategoryBySlug(c.Request.Context(), c.Param("category_slug"))
	if err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			api.notFound(c, "Категория не найдена")
			return
		}
		api.serverError(c, "failed to load category", err)
		return
	}
	c.HTML(http.StatusOK, "category.html", api.page(c, gin.H{
		"Title":    category.Name,
		"Category": category,
	}))
}

// Item - карточка активного товара.
// GET /catalog/:category_slug/:item_slug/
func (api *CatalogAPI) Item(c *gin.Context) {
	item, err := api.catalog.ItemBySlug(c.Request.Context(), c.Param("category_slug"), c.Param("item_slug"))
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) || errors.Is(err, services.ErrCategoryNotFound) {
			api.notFound(c, "Товар не найден")
			return
		}
		api.serverError(c, "failed to load item", err)
		return
	}
	c.HTML(http.StatusOK, "item.html", api.page(c, gin.H{
		"Title": item.Name,
		"Item":  item,
	}))
}

// SeeItInYourRoom - примерка мебели на фото комнаты посетителя.
// Фото обрабатывается в браузере и на сервер не отправляется.
// GET /see-it-in-your-room/
func (api *CatalogAPI) SeeItInYourRoom(c *gin.Context) {
	items, err := api.catalog.RoomItems(c.Request.Context())
	if err != nil {
		api.serverError(c, "failed to load room items", err)
		return
	}
	c.HTML(http.StatusOK, "see_it.html", api.page(c, gin.H{
		"Title": "Примерьте в своей комнате",
		"Items": items,
	}))
}

// page добавляет общие данные шаблона: телефон и токен визита
func (api *CatalogAPI) page(c *gin.Context, data gin.H) gin.H {
	data["Phone"] = api.phone
	data["VisitID"] = currentVisitID(c)
	return data
}

func (api *CatalogAPI) notFound(c *gin.Context, message string) {
	c.HTML(http.StatusNotFound, "not_found.html", api.page(c, gin.H{
		"Title":   "Не найдено",
		"Message": message,
	}))
}

func (api *CatalogAPI) serverError(c *gin.Context, msg string, err error) {
	api.logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.String(http.StatusInternalServerError, "Внутренняя ошибка сервера")
}

// currentVisitID возвращает токен визита из запроса или cookie
func currentVisitID(c *gin.Context) string {
	if visitID := c.Query("visit_id"); visitID != "" {
		return visitID
	}
	visitID, _ := c.Cookie(visitCookie)
	return visitID
}
