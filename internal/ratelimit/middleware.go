package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-faktur/internal/common"
)

// KeyFunc derives the identity a limit is tracked against.
type KeyFunc func(*http.Request) string

// ByClientIP keys limits on the caller's address, honoring X-Forwarded-For.
func ByClientIP(r *http.Request) string {
	return common.ClientIP(r)
}

// Middleware enforces a request rate through the shared limiter store.
// Limiter lookup failures fail open.
type Middleware struct {
	Store  limiter.Store
	Rate   limiter.Rate
	Key    KeyFunc
	Logger *zerolog.Logger
}

// Wrap returns next guarded by the limit. An unconfigured middleware is a
// no-op so routes can be wired unconditionally.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	if m.Store == nil || m.Key == nil || m.Rate.Limit <= 0 {
		return next
	}
	instance := limiter.New(m.Store, m.Rate)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lctx, err := instance.Get(r.Context(), m.Key(r))
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error().Err(err).Msg("rate limit lookup")
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := lctx.Reset - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
