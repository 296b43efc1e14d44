package middleware

import (
	"net/http"
)

// securityHeaders are set on every response. Compressed artwork is embedded
// by marketplaces on other origins, hence the cross-origin resource policy.
var securityHeaders = [...]struct{ key, value string }{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'"},
	{"Cross-Origin-Resource-Policy", "cross-origin"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
}

// Security adds security-related headers to all responses
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, sh := range securityHeaders {
			h.Set(sh.key, sh.value)
		}

		// HSTS only makes sense over TLS, directly or behind a terminating proxy
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
