package api

import (
	"crypto/subtle"
	"net"
	"net/http"
)

// guard wraps the router with API-key auth and per-client rate
// limiting. Health stays open so probes work without credentials.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/api/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		if s.apiKey != "" {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "API key required. Provide X-API-Key header.")
				return
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
		}

		if s.limiter != nil {
			if !s.limiter.TryAcquire(clientKey(r)) {
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller for rate limiting: the API key when
// one is presented, otherwise the remote host.
func clientKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
