package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"inabottle/internal/config"
)

func TestFromConfigKeepsDefaults(t *testing.T) {
	c := FromConfig(config.RateLimitConfig{RPS: 5})
	assert.Equal(t, 5.0, c.RPS)
	assert.Equal(t, 100, c.Burst)
	assert.Equal(t, 5*time.Minute, c.CleanupInterval)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(RateLimitMiddleware(ctx, RateLimitConfig{
		RPS:             1,
		Burst:           2,
		CleanupInterval: time.Minute,
		MaxAge:          time.Minute,
	}))
	r.GET("/hub", func(c *gin.Context) { c.Status(http.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/hub", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/hub", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "limits are per client")
}
