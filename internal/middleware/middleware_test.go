package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestRateLimit(t *testing.T) {
	h := RateLimit(2)(ok)

	send := func(ip, path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusTeapot, send("10.0.0.1", "/api/dashboard"))
	assert.Equal(t, http.StatusTeapot, send("10.0.0.1", "/api/dashboard"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1", "/api/dashboard"))

	// Other clients and other paths have their own budget.
	assert.Equal(t, http.StatusTeapot, send("10.0.0.2", "/api/dashboard"))
	assert.Equal(t, http.StatusTeapot, send("10.0.0.1", "/api/report"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders()(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestStructuredLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := chimw.RequestID(StructuredLogger(zap.New(core))(ok))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/report", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/report", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}
