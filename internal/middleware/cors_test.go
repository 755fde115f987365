package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func preflight(h http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPreflight(t *testing.T) {
	opts := CORSOptions{
		AllowedOrigins:   []string{"https://app.example.com", "https://admin.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           3600,
	}
	reached := false
	h := Preflight(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }))

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{"exact match", "https://admin.example.com", "https://admin.example.com"},
		{"unknown origin falls back to first", "https://evil.example.com", "https://app.example.com"},
		{"no origin falls back to first", "", "https://app.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = false
			rec := preflight(h, tt.origin)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Body.String())
			assert.False(t, reached, "preflight is not forwarded")
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Authorization, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
		})
	}
}

func TestPreflight_WildcardEchoesOrigin(t *testing.T) {
	opts := CORSOptions{AllowedOrigins: []string{"*"}, AllowCredentials: true, MaxAge: 60}
	h := Preflight(opts)(http.NotFoundHandler())

	rec := preflight(h, "https://anything.example.org")
	assert.Equal(t, "https://anything.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight_PassesOtherMethods(t *testing.T) {
	reached := false
	h := Preflight(DefaultCORSOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	assert.True(t, reached)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSimple_DecoratesAllowedOrigin(t *testing.T) {
	opts := CORSOptions{AllowedOrigins: []string{"https://app.example.com"}, AllowedMethods: []string{"GET"}, AllowCredentials: true}
	h := Simple(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
