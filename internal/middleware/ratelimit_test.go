package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLimiterStore_AllowAndExhaust(t *testing.T) {
	store := NewLimiterStore(60, 2, time.Minute)
	defer store.Stop()

	assert.True(t, store.Allow("1.2.3.4"))
	assert.True(t, store.Allow("1.2.3.4"))
	// Burst of 2 spent, refill is 1/sec; immediate third call must fail.
	assert.False(t, store.Allow("1.2.3.4"))

	// A different key has its own bucket.
	assert.True(t, store.Allow("5.6.7.8"))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := NewLimiterStore(60, 1, time.Minute)
	defer store.Stop()

	router := gin.New()
	router.POST("/login", RateLimit(store), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "9.9.9.9:1234"

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
