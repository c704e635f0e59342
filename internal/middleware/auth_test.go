package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"draw-backend/internal/config"
	"draw-backend/internal/middleware"
)

const adminSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

func adminRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.AdminAuthMiddleware(cfg))
	router.POST("/admin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(middleware.AdminSubjectKey)})
	})
	return router
}

func signed(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	assert.NoError(t, err)
	return token
}

func TestAdminAuth_NoToken(t *testing.T) {
	router := adminRouter(&config.Config{AdminJWTSecret: adminSecret})

	req, _ := http.NewRequest("POST", "/admin", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_InvalidToken(t *testing.T) {
	router := adminRouter(&config.Config{AdminJWTSecret: adminSecret})

	req, _ := http.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_WrongSecret(t *testing.T) {
	router := adminRouter(&config.Config{AdminJWTSecret: adminSecret})

	req, _ := http.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{"sub": "ops", "role": "admin"}, "other-secret"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "signature is invalid")
}

func TestAdminAuth_ExpiredToken(t *testing.T) {
	router := adminRouter(&config.Config{AdminJWTSecret: adminSecret})

	token := signed(t, jwt.MapClaims{"sub": "ops", "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()}, adminSecret)
	req, _ := http.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token has expired")
}

func TestAdminAuth_MissingRole(t *testing.T) {
	router := adminRouter(&config.Config{AdminJWTSecret: adminSecret})

	req, _ := http.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{"sub": "player"}, adminSecret))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminAuth_ValidToken(t *testing.T) {
	router := adminRouter(&config.Config{AdminJWTSecret: adminSecret})

	req, _ := http.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{"sub": "ops", "role": "admin"}, adminSecret))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"ops"}`, w.Body.String())
}

func TestAdminAuth_DisabledWithoutSecret(t *testing.T) {
	router := adminRouter(&config.Config{})

	req, _ := http.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.MapClaims{"sub": "ops", "role": "admin"}, adminSecret))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
