package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gos_landing/services"
	"gos_landing/testutils"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *gorm.DB, *services.TokenService) {
	gin.SetMode(gin.TestMode)
	db := testutils.SetupTestDB(t)
	tokens := services.NewTokenService(testutils.TestJWTSecret, "gos-landing", time.Hour)
	auth := NewAuthMiddleware(tokens, services.NewUserService(db))

	router := gin.New()
	router.GET("/private", auth.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetCurrentUser(c).Username})
	})
	router.GET("/staff", auth.RequireAuth(), auth.RequireStaff(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, db, tokens
}

func doRequest(router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	router, db, tokens := setupAuthRouter(t)
	user := testutils.CreateTestUser(t, db, "owner", false)
	token, err := tokens.Issue(user, 0)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"без заголовка", "", http.StatusUnauthorized},
		{"Bearer префикс", "Bearer " + token, http.StatusOK},
		{"Token префикс", "Token " + token, http.StatusOK},
		{"без префикса", token, http.StatusOK},
		{"мусорный токен", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, "/private", tt.header)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), "owner")
			}
		})
	}
}

func TestRequireAuthRejectsInactiveUser(t *testing.T) {
	router, db, tokens := setupAuthRouter(t)
	user := testutils.CreateTestUser(t, db, "gone", false)
	token, err := tokens.Issue(user, 0)
	require.NoError(t, err)

	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	w := doRequest(router, "/private", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireStaff(t *testing.T) {
	router, db, tokens := setupAuthRouter(t)
	owner := testutils.CreateTestUser(t, db, "owner", false)
	admin := testutils.CreateTestUser(t, db, "admin", true)

	ownerToken, err := tokens.Issue(owner, 0)
	require.NoError(t, err)
	adminToken, err := tokens.Issue(admin, 0)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, doRequest(router, "/staff", "Bearer "+ownerToken).Code)
	assert.Equal(t, http.StatusNoContent, doRequest(router, "/staff", "Bearer "+adminToken).Code)
}

func TestRateLimitWithoutRedisPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/visit", PublicRateLimit(nil, 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, "/visit", "").Code)
	}
}

func TestUserKeyGenerator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutils.SetupTestDB(t)
	tokens := services.NewTokenService(testutils.TestJWTSecret, "gos-landing", time.Hour)
	auth := NewAuthMiddleware(tokens, services.NewUserService(db))

	user := testutils.CreateTestUser(t, db, "owner", false)
	token, err := tokens.Issue(user, 0)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/key", func(c *gin.Context) {
		c.String(http.StatusOK, UserKeyGenerator(c))
	})
	router.GET("/user-key", auth.RequireAuth(), UserRateLimit(nil, 1, time.Minute), func(c *gin.Context) {
		c.String(http.StatusOK, UserKeyGenerator(c))
	})

	w := doRequest(router, "/user-key", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user:"+strconv.FormatUint(uint64(user.ID), 10), w.Body.String())

	// Без Redis лимит не применяется
	assert.Equal(t, http.StatusOK, doRequest(router, "/user-key", "Bearer "+token).Code)

	w = doRequest(router, "/key", "")
	assert.Equal(t, "192.0.2.1", w.Body.String())
}
