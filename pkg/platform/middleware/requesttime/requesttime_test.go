package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tranquility/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	var seenID string
	var seenTime time.Time
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = requestcontext.RequestID(r.Context())
		seenTime = requestcontext.Now(r.Context())
	}))

	t.Run("generates an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seenID)
		assert.Equal(t, seenID, rec.Header().Get(HeaderRequestID))
		assert.WithinDuration(t, time.Now(), seenTime, time.Second)
	})

	t.Run("keeps a caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "abc-123", seenID)
	})
}
