package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-booking/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRedisCacheInvalidatesOnSuccessfulWrite(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: []string{"GET"}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20,
	}
	seats := 10
	e := echo.New()
	e.Use(NewRedisCache(cfg, rdb, nil))
	e.GET("/v1/flights/:id/seats", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"seats_left": seats})
	})
	e.POST("/v1/reservations", func(c echo.Context) error {
		seats--
		return c.JSON(http.StatusCreated, echo.Map{"id": 1})
	})
	e.POST("/v1/rejected", func(c echo.Context) error {
		return c.JSON(http.StatusConflict, echo.Map{"error": "no more seats available"})
	})

	rec := serve(e, http.MethodGet, "/v1/flights/1/seats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"seats_left":10}`, rec.Body.String())

	// changed behind the cache's back: a HIT still shows the stored body
	seats = 5
	rec = serve(e, http.MethodGet, "/v1/flights/1/seats", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"seats_left":10}`, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)

	// a failed write leaves the generation alone
	rec = serve(e, http.MethodPost, "/v1/rejected", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, mr.Exists("cache:gen"))
	rec = serve(e, http.MethodGet, "/v1/flights/1/seats", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	rec = serve(e, http.MethodPost, "/v1/reservations", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	gen, err := mr.Get("cache:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	rec = serve(e, http.MethodGet, "/v1/flights/1/seats", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"seats_left":4}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/v1/flights/2/seats", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestRedisCacheServesUncachedWhenRedisIsDown(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: []string{"GET"}, TTL: time.Minute, Prefix: "cache"}
	e := echo.New()
	e.Use(NewRedisCache(cfg, rdb, nil))
	e.GET("/v1/flights", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"items": []int{}})
	})
	mr.Close()

	rec := serve(e, http.MethodGet, "/v1/flights", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestTokenBucketBlocksWithRetryAfter(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, nil))
	e.GET("/v1/flights", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/v1/flights", "192.0.2.10:4000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodGet, "/v1/flights", "192.0.2.10:4001")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retry > 0 && retry <= 60, "retry after %d", retry)
	assert.Contains(t, rec.Body.String(), `"error":"rate limit exceeded"`)

	// another client has its own bucket
	rec = serve(e, http.MethodGet, "/v1/flights", "198.51.100.7:4000")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute, TTL: time.Minute, Prefix: "rl"}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, nil))
	e.GET("/v1/flights", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/flights", "").Code)
	}
}
