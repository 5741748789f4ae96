package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows up to the limit", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)

		assert.True(t, rl.Allow("pos-1"))
		assert.True(t, rl.Allow("pos-1"))
		assert.True(t, rl.Allow("pos-1"))
		assert.False(t, rl.Allow("pos-1"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)

		assert.True(t, rl.Allow("pos-1"))
		assert.False(t, rl.Allow("pos-1"))
		assert.True(t, rl.Allow("pos-2"))
	})

	t.Run("window elapsing refills tokens", func(t *testing.T) {
		rl := NewRateLimiter(1, 20*time.Millisecond)

		require.True(t, rl.Allow("pos-1"))
		require.False(t, rl.Allow("pos-1"))

		time.Sleep(30 * time.Millisecond)
		assert.True(t, rl.Allow("pos-1"))
	})

	t.Run("remaining tracks consumption", func(t *testing.T) {
		rl := NewRateLimiter(5, time.Minute)

		assert.Equal(t, 5, rl.Remaining("pos-1"))
		rl.Allow("pos-1")
		rl.Allow("pos-1")
		assert.Equal(t, 3, rl.Remaining("pos-1"))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(NewRateLimiter(2, time.Minute)))
	router.POST("/api/v1/billing/payments", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/billing/payments", nil)
		router.ServeHTTP(w, req)
		return w
	}

	first := do()
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	second := do()
	assert.Equal(t, http.StatusCreated, second.Code)

	third := do()
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Contains(t, third.Body.String(), "RATE_LIMIT_EXCEEDED")
}
