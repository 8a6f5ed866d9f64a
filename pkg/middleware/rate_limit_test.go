package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/snipvault/pkg/configs"
)

func limitedEngine(cfg configs.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(RequestContextMiddleware())
	e.POST("/w", RateLimitMiddleware(cfg), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	return e
}

func post(e *gin.Engine, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/w", nil)
	if user != "" {
		req.Header.Set(HeaderUser, user)
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	return w
}

func TestRateLimitPerUser(t *testing.T) {
	e := limitedEngine(configs.RateLimitConfig{Enabled: true, RPS: 0.5, Burst: 1, Key: "user"})

	assert.Equal(t, http.StatusNoContent, post(e, "7").Code)

	w := post(e, "7")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	// 其他操作者有独立的额度
	assert.Equal(t, http.StatusNoContent, post(e, "8").Code)
}

func TestRateLimitGlobal(t *testing.T) {
	e := limitedEngine(configs.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1, Key: "global"})

	assert.Equal(t, http.StatusNoContent, post(e, "7").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(e, "8").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	e := limitedEngine(configs.RateLimitConfig{Enabled: false, RPS: 1, Burst: 0})

	for range 5 {
		assert.Equal(t, http.StatusNoContent, post(e, "").Code)
	}
}

func TestLimiterSetSweepsIdle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	s := newLimiterSet(configs.RateLimitConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	s.now = func() time.Time { return now }

	s.get("old")

	now = now.Add(2 * time.Minute)

	for range sweepEvery - 1 {
		s.get("fresh")
	}

	assert.Equal(t, 1, s.len())
}
