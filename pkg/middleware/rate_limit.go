package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/snipvault/pkg/configs"
	ctxPkg "github.com/yeisme/snipvault/pkg/context"
)

const sweepEvery = 256

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// limiterSet 分键限流器，按访问次数顺带回收闲置项.
type limiterSet struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	idle    time.Duration
	calls   int
	now     func() time.Time
}

func newLimiterSet(cfg configs.RateLimitConfig) *limiterSet {
	return &limiterSet{
		entries: map[string]*limiterEntry{},
		limit:   rate.Limit(cfg.RPS),
		burst:   cfg.Burst,
		idle:    cfg.IdleTTL,
		now:     time.Now,
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	s.calls++
	if s.idle > 0 && s.calls%sweepEvery == 0 {
		for k, e := range s.entries {
			if now.Sub(e.seen) > s.idle {
				delete(s.entries, k)
			}
		}
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}

	e.seen = now

	return e.limiter
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// RateLimitMiddleware 按配置的维度对请求限流，超限返回 429 和 Retry-After.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyOf := rateKey(strings.TrimSpace(cfg.Key))

	var (
		global *rate.Limiter
		set    *limiterSet
	)

	if keyOf == nil {
		global = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
	} else {
		set = newLimiterSet(cfg)
	}

	retryAfter := strconv.Itoa(int(math.Ceil(1 / cfg.RPS)))

	return func(c *gin.Context) {
		l := global
		if set != nil {
			l = set.get(keyOf(c))
		}

		if !l.Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})

			return
		}

		c.Next()
	}
}

// rateKey 返回取键函数，global 返回 nil.
func rateKey(mode string) func(*gin.Context) string {
	lower := strings.ToLower(mode)

	switch {
	case lower == "" || lower == "global":
		return nil
	case lower == "user":
		return func(c *gin.Context) string {
			return "user:" + ctxPkg.GetActor(c.Request.Context())
		}
	case strings.HasPrefix(lower, "header:"):
		name := mode[len("header:"):]

		return func(c *gin.Context) string {
			if v := c.GetHeader(name); v != "" {
				return "header:" + v
			}

			return "ip:" + c.ClientIP()
		}
	default:
		return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
	}
}
