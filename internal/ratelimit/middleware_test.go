package ratelimit_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/backend-faktur/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareBlocksOverLimit(t *testing.T) {
	m := ratelimit.Middleware{
		Store: memory.NewStore(),
		Rate:  limiter.Rate{Period: time.Minute, Limit: 2},
		Key:   ratelimit.ByClientIP,
	}
	h := m.Wrap(okHandler())

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/abc/pdf", nil)
		req.RemoteAddr = "10.0.0.9:40000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	second := do()
	require.Equal(t, http.StatusOK, second.Code)

	third := do()
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	require.NotEmpty(t, third.Header().Get("Retry-After"))
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(third.Body.Bytes(), &body))
	require.Equal(t, "RATE_LIMITED", body.Error.Code)
}

func TestMiddlewareTracksClientsSeparately(t *testing.T) {
	m := ratelimit.Middleware{
		Store: memory.NewStore(),
		Rate:  limiter.Rate{Period: time.Minute, Limit: 1},
		Key:   ratelimit.ByClientIP,
	}
	h := m.Wrap(okHandler())

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do("10.0.0.1:1000"))
	require.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1001"))
	require.Equal(t, http.StatusOK, do("10.0.0.2:1000"))
}

func TestMiddlewareUnconfiguredPassesThrough(t *testing.T) {
	h := ratelimit.Middleware{}.Wrap(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
