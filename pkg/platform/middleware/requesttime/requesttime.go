// Package requesttime pins a single "now" and request id for the lifetime of
// an HTTP request so every audit timestamp and log line it produces agrees.
package requesttime

import (
	"net/http"
	"time"

	"tranquility/pkg/requestcontext"
)

// HeaderRequestID carries a caller-supplied request id; one is generated when absent.
const HeaderRequestID = "X-Request-ID"

// Middleware captures the current time and request id at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = requestcontext.NewRequestID()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		ctx = requestcontext.WithRequestID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
