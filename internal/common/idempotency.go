package common

import (
	"context"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem enforces Idempotency-Key semantics for write endpoints using a Redis
// SetNX claim. Requests without the header pass through untouched, as do all
// requests when no Redis client is configured.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// Middleware claims the key before the handler runs. A duplicate claim is
// answered with 409 without invoking the handler.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		claim := "idem:" + Sha256Hex(key)
		ok, err := i.R.SetNX(r.Context(), claim, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		// reset the TTL after the handler returns, also on panic
		defer func() {
			_ = i.R.Expire(context.Background(), claim, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
