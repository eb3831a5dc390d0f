package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/ferro-labs/faceslots/internal/metrics"
)

// KeyFunc derives the limiter key for a request.
type KeyFunc func(r *http.Request) string

// ByRemoteIP keys requests by client IP. Run it after chi's RealIP
// middleware so proxied requests are keyed by the original client.
func ByRemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests with 429 once the per-key bucket in store is
// empty. A nil store disables limiting.
func Middleware(store *Store, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ByRemoteIP
	}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.Allow(key(r)) {
				metrics.RateLimitRejections.Inc()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]string{
						"message": "rate limit exceeded",
						"type":    "rate_limit_error",
						"code":    "rate_limit_exceeded",
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
