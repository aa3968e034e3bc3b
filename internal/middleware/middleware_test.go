package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granada-sport/server/internal/config"
	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/service"
)

type stubResolver map[string]model.User

func (s stubResolver) CurrentActiveUser(_ context.Context, token string) (model.User, error) {
	u, ok := s[token]
	if !ok {
		return model.User{}, service.ErrUnauthorized
	}
	return service.RequireActive(u)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoAmI(c echo.Context) error {
	id, ok := CurrentUserID(c)
	if !ok {
		return c.String(http.StatusOK, "anonymous")
	}
	return c.String(http.StatusOK, strconv.FormatUint(id, 10))
}

func TestAuthenticate(t *testing.T) {
	users := stubResolver{
		"good":     {ID: 7, Email: "a@b.c", Active: true},
		"inactive": {ID: 8, Email: "d@e.f", Active: false},
	}
	e := echo.New()
	e.GET("/me", whoAmI, Authenticate(users))

	rec := serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer good"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Body.String())

	rec = serve(e, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer inactive"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOptionalAuthenticate(t *testing.T) {
	users := stubResolver{"good": {ID: 7, Active: true}}
	e := echo.New()
	e.GET("/event", whoAmI, OptionalAuthenticate(users))

	rec := serve(e, http.MethodGet, "/event", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	rec = serve(e, http.MethodGet, "/event", map[string]string{"Authorization": "Bearer good"})
	assert.Equal(t, "7", rec.Body.String())

	rec = serve(e, http.MethodGet, "/event", map[string]string{"Authorization": "Bearer bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/event", map[string]string{"Authorization": "Basic Zm9vOmJhcg=="})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, zerolog.Nop()))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/ping", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(e, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketDisabledWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, nil, zerolog.Nop()))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ping", nil).Code)
	}
}

func TestRedisCacheHitAndInvalidate(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache:test", MaxBodyBytes: 1 << 20,
	}
	calls := 0
	e := echo.New()
	e.GET("/event", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, rdb, zerolog.Nop()))

	first := serve(e, http.MethodGet, "/event?sport=tennis", nil)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := serve(e, http.MethodGet, "/event?sport=tennis", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	other := serve(e, http.MethodGet, "/event?sport=padel", nil)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))

	require.NoError(t, NewListingCache(cfg, rdb).InvalidateListings(context.Background()))
	third := serve(e, http.MethodGet, "/event?sport=tennis", nil)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestListingCacheLeavesOtherKeys(t *testing.T) {
	mr, rdb := newRedis(t)
	require.NoError(t, mr.Set("cache:a", "1"))
	require.NoError(t, mr.Set("rl:ip:1.2.3.4", "x"))

	require.NoError(t, NewListingCache(config.CacheConfig{Prefix: "cache"}, rdb).InvalidateListings(context.Background()))
	assert.False(t, mr.Exists("cache:a"))
	assert.True(t, mr.Exists("rl:ip:1.2.3.4"))

	var nilCache *ListingCache
	assert.NoError(t, nilCache.InvalidateListings(context.Background()))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(zerolog.Nop()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := serve(e, http.MethodGet, "/healthz", nil)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	rec = serve(e, http.MethodGet, "/healthz", map[string]string{echo.HeaderXRequestID: "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
}
