package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/guttosm/capitolledger/internal/logger"
)

// quietPaths are probe endpoints logged at debug level only.
var quietPaths = map[string]bool{"/healthz": true, "/readyz": true}

// RequestLogger is a Gin middleware that logs method, route, status code,
// request latency, and request ID (if available).
//
// Behavior:
//   - 5xx responses log at error, 4xx at warn, everything else at info.
//   - Health probes log at debug so they do not drown run-report traffic.
//   - Errors attached with c.Error are included.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID(), middleware.RequestLogger())
//
// Example log output:
//
//	{"component":"http","request_id":"123e4567-...","method":"GET","route":"/api/v1/runs/:id","status":200,"latency_ms":15}
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		rid, _ := c.Get(RequestIDKey)
		route := c.FullPath()
		if route == "" {
			route = path
		}

		l := logger.Component("http")
		ev := l.WithLevel(levelFor(path, status)).
			Str("request_id", toString(rid)).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP())
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", strings.Join(c.Errors.Errors(), "; "))
		}
		ev.Msg("http_request")
	}
}

func levelFor(path string, status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	case quietPaths[path]:
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// RateLimiter limits requests per client IP with a token bucket.
//
// Behavior:
//   - Each client IP gets perWindow tokens, refilled evenly over window.
//   - Idle clients are evicted from the cache after two windows.
//   - If the bucket is empty, returns HTTP 429 Too Many Requests.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RateLimiter(60, time.Minute))
//
// Response when limit exceeded:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	    "message": "rate limit exceeded"
//	}
func RateLimiter(perWindow int, window time.Duration) gin.HandlerFunc {
	if perWindow < 1 {
		perWindow = 1
	}
	refill := window / time.Duration(perWindow)
	every := rate.Every(refill)
	retryAfter := strconv.FormatInt(int64((refill+time.Second-1)/time.Second), 10)
	visitors := cache.New(2*window, 2*window)
	var mu sync.Mutex

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if v, ok := visitors.Get(ip); ok {
			visitors.SetDefault(ip, v)
			return v.(*rate.Limiter)
		}
		l := rate.NewLimiter(every, perWindow)
		visitors.SetDefault(ip, l)
		return l
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			c.Header("Retry-After", retryAfter)
			AbortWithError(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
