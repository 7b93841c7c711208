package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareCORS(t *testing.T) {
	h := Middleware(Config{AllowedOrigins: []string{"http://app.local"}})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	req.Header.Set("Origin", "http://app.local")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "http://app.local", rr.Header().Get("Access-Control-Allow-Origin"))

	// Unlisted origins get no CORS headers but the request still runs.
	req = httptest.NewRequest(http.MethodGet, "/messages", nil)
	req.Header.Set("Origin", "http://evil.local")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddlewarePreflight(t *testing.T) {
	h := Middleware(Config{AllowedOrigins: []string{"*"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/messages", nil)
	req.Header.Set("Origin", "http://anywhere")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "http://anywhere", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddlewareRateLimit(t *testing.T) {
	h := Middleware(Config{RPS: 1, Burst: 2})(okHandler())

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/messages", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes[rr.Code]++
	}
	require.Equal(t, 2, codes[http.StatusOK], "burst of 2 passes")
	require.Equal(t, 3, codes[http.StatusTooManyRequests])

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddlewareHealthzBypassesLimit(t *testing.T) {
	h := Middleware(Config{RPS: 1, Burst: 1})(okHandler())
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.3:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestMiddlewareDisabledLimit(t *testing.T) {
	h := Middleware(Config{})(okHandler())
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/messages", nil)
		req.RemoteAddr = "10.0.0.4:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}
}
