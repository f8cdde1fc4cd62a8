package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finicafferata/eme-studio-api/internal/config"
)

func TestEncodeDecodeCached(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	body := []byte(`{"classes":[]}`)

	payload, err := encodeCached(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodeCached(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, body, gotBody)

	_, _, _, ok = decodeCached([]byte("short"))
	assert.False(t, ok)
	_, _, _, ok = decodeCached([]byte{0, 0, 0, 200, 255, 255, 255, 255})
	assert.False(t, ok)
}

func TestCacheKeyVariesByQuery(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "studio:cache", KeyStrategy: "route_query"}
	e := echo.New()

	ctxFor := func(target string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/classes")
		return c
	}

	base := cacheKey(cfg, ctxFor("/v1/classes"))
	withQuery := cacheKey(cfg, ctxFor("/v1/classes?date=2025-06-02"))
	assert.NotEqual(t, base, withQuery)
	assert.Equal(t, base, cacheKey(cfg, ctxFor("/v1/classes")))

	// The route strategy ignores the query.
	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKey(cfg, ctxFor("/v1/classes")), cacheKey(cfg, ctxFor("/v1/classes?date=x")))
}

func TestNewRedisCachePassThroughWithoutRedis(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: true}, nil)

	e := econtext(t)
	called := false
	h := mw(func(c echo.Context) error { called = true; return nil })
	require.NoError(t, h(e))
	assert.True(t, called)
	// No cache headers when the middleware is inert.
	assert.Empty(t, e.Response().Header().Get("X-Cache"))
}

func econtext(t *testing.T) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/classes", nil)
	return echo.New().NewContext(req, httptest.NewRecorder())
}
