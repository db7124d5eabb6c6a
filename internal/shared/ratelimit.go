package shared

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitKey keys limiters by session when one exists, by client IP otherwise.
func RateLimitKey(r *http.Request) (string, error) {
	if sess := SessionFromContext(r.Context()); sess.Authenticated() {
		return "session:" + sess.ID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

// StrictLimiter is the per-session limiter applied to expensive or outward actions.
func StrictLimiter(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(RateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
}
