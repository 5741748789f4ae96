package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/billing/backend/internal/infrastructure/auth"
	"github.com/billing/backend/internal/infrastructure/config"
	"github.com/billing/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T, expiration time.Duration) *auth.JWTService {
	t.Helper()
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "middleware-test-secret-key-0123456789",
		AccessTokenExpiration: expiration,
		Issuer:                "billing-backend-test",
	})
}

func newAuthRouter(svc *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService: svc,
		SkipPaths:  []string{"/health"},
	}))
	router.GET("/api/v1/invoices", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetJWTUserID(c)})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestJWTAuthMiddleware(t *testing.T) {
	svc := newTestAuthService(t, time.Hour)
	router := newAuthRouter(svc)

	t.Run("allows request with valid token", func(t *testing.T) {
		userID := uuid.New()
		token, err := svc.GenerateToken(auth.GenerateTokenInput{
			UserID:   userID,
			Username: "accountant",
		})
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/v1/invoices", nil)
		req.Header.Set("Authorization", "Bearer "+token.Token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
	})

	t.Run("rejects request without authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/invoices", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeTokenInvalid)
	})

	t.Run("rejects malformed authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/invoices", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expiredSvc := newTestAuthService(t, -time.Minute)
		token, err := expiredSvc.GenerateToken(auth.GenerateTokenInput{
			UserID:   uuid.New(),
			Username: "accountant",
		})
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/v1/invoices", nil)
		req.Header.Set("Authorization", "Bearer "+token.Token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeTokenExpired)
	})

	t.Run("skips configured paths", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestOptionalJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestAuthService(t, time.Hour)

	router := gin.New()
	router.Use(OptionalJWTAuthMiddleware(svc))
	router.GET("/quotes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetJWTUserID(c)})
	})

	t.Run("continues without token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/quotes", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":""`)
	})

	t.Run("extracts claims when token is valid", func(t *testing.T) {
		userID := uuid.New()
		token, err := svc.GenerateToken(auth.GenerateTokenInput{
			UserID:   userID,
			Username: "accountant",
		})
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/quotes", nil)
		req.Header.Set("Authorization", "Bearer "+token.Token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
	})

	t.Run("continues silently with invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/quotes", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":""`)
	})
}

func TestGetJWTClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetJWTClaims(c))

	claims := &auth.Claims{UserID: uuid.New().String(), Username: "accountant"}
	c.Set(JWTClaimsKey, claims)
	assert.Equal(t, claims, GetJWTClaims(c))
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestAuthService(t, time.Hour)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{JWTService: svc}))
	router.DELETE("/api/v1/billing/invoices/:id", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	issue := func(t *testing.T, isAdmin bool) string {
		t.Helper()
		token, err := svc.GenerateToken(auth.GenerateTokenInput{
			UserID:   uuid.New(),
			Username: "accountant",
			IsAdmin:  isAdmin,
		})
		require.NoError(t, err)
		return token.Token
	}

	t.Run("rejects non-admin claims", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/billing/invoices/42", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+issue(t, false))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeForbidden)
	})

	t.Run("allows admin claims", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/billing/invoices/42", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+issue(t, true))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("rejects when no claims in context", func(t *testing.T) {
		bare := gin.New()
		bare.DELETE("/x", RequireAdmin(), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		req := httptest.NewRequest(http.MethodDelete, "/x", nil)
		w := httptest.NewRecorder()
		bare.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
