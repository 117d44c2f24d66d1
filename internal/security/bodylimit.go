package security

import (
	"fmt"
	"net/http"

	"github.com/noah-isme/backend-faktur/internal/common"
)

// MaxBody caps the request payload size for the JSON API. Document payloads
// are small; anything near the limit is a client bug or abuse.
type MaxBody struct {
	Limit int64
}

// Middleware rejects requests whose declared length exceeds the limit and
// caps chunked bodies at read time via http.MaxBytesReader.
func (m MaxBody) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Limit <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > m.Limit {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				fmt.Sprintf("request body exceeds %d bytes", m.Limit), nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, m.Limit)
		next.ServeHTTP(w, r)
	})
}
