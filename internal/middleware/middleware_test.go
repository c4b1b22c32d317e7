package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/umbrella-rental/internal/config"
	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/utils"
)

const secret = "test-secret"

func httpDo(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, uid string, role model.Role) string {
	tok, err := utils.NewAccessToken(secret, uid, string(role), 5)
	require.NoError(t, err)
	return tok.Token
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(secret), RequireRole(model.RoleAdmin))
	g.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(CtxUserID).(string))
	})

	rec := httpDo(e, http.MethodGet, "/admin/whoami", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	rec = httpDo(e, http.MethodGet, "/admin/whoami", "garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())

	rec = httpDo(e, http.MethodGet, "/admin/whoami", token(t, "u-1", model.RoleUser))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httpDo(e, http.MethodGet, "/admin/whoami", token(t, "a-1", model.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a-1", rec.Body.String())
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip_route", Prefix: "rl",
	}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	rec := httpDo(e, http.MethodPost, "/login", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	require.Equal(t, http.StatusNoContent, httpDo(e, http.MethodPost, "/login", "").Code)

	rec = httpDo(e, http.MethodPost, "/login", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketPassesWithoutRedis(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, nil))
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, httpDo(e, http.MethodGet, "/x", "").Code)
	}
}

func TestTokenBucketFailsOpenOnRedisError(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rl"}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb))
	require.Equal(t, http.StatusOK, httpDo(e, http.MethodGet, "/x", "").Code)
	require.Equal(t, http.StatusOK, httpDo(e, http.MethodGet, "/x", "").Code)
}

func TestRedisCacheHitMissAndPurge(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true},
		TTL: time.Minute, KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20,
	}
	calls := 0
	e := echo.New()
	e.GET("/dashboard", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, rdb))
	e.POST("/umbrellas", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, PurgeCache(cfg, rdb))

	rec := httpDo(e, http.MethodGet, "/dashboard", "")
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.JSONEq(t, `{"calls":1}`, rec.Body.String())

	rec = httpDo(e, http.MethodGet, "/dashboard", "")
	require.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	require.JSONEq(t, `{"calls":1}`, rec.Body.String())
	require.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))
	require.Equal(t, 1, calls)

	require.Equal(t, http.StatusCreated, httpDo(e, http.MethodPost, "/umbrellas", "").Code)

	rec = httpDo(e, http.MethodGet, "/dashboard", "")
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.JSONEq(t, `{"calls":2}`, rec.Body.String())
}

func TestPayloadCodec(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "application/json", hdr.Get("Content-Type"))
	require.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	require.False(t, ok)
}
