// Package security provides the request middleware: CORS handling and a
// per-client rate limiter. Authentication is deliberately absent.
package security

import (
	"net"
	"net/http"

	"chatrelay/pkg/logger"
)

// Config holds middleware settings.
type Config struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
}

// Middleware wraps next with CORS headers, preflight handling and per-IP
// rate limiting. A zero RPS disables limiting entirely.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Max-Age", "600")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			// Health probes bypass rate limiting so deployment checks
			// cannot starve themselves out.
			if cfg.RPS > 0 && r.URL.Path != "/healthz" {
				ip := clientIP(r)
				if !limiters.Allow(ip) {
					logger.Warn("request_rate_limited", "ip", ip, "path", r.URL.Path)
					http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
