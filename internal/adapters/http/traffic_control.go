package httpadapter

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitMiddleware applies one token bucket to the whole API. rps <= 0
// disables it.
func rateLimitMiddleware(next http.Handler, rps float64, burst int, onReject func(string)) http.Handler {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	retryAfter := strconv.Itoa(max(1, int(math.Ceil(1/rps))))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			if onReject != nil {
				onReject("rate_limit")
			}
			w.Header().Set("Retry-After", retryAfter)
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware bounds concurrent requests. A request waits up to
// wait for a slot and is then refused with 503. Transcript sockets are
// long-lived and bypass the gate.
func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration, onReject func(string)) http.Handler {
	if maxInFlight <= 0 {
		return next
	}
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, websocketPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case slots <- struct{}{}:
		case <-timer.C:
			if onReject != nil {
				onReject("backpressure")
			}
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "server is overloaded, retry later"})
			return
		case <-r.Context().Done():
			return
		}
		defer func() { <-slots }()

		next.ServeHTTP(w, r)
	})
}
