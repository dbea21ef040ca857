package service

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/arashthr/shelfmark/internal/errors"
	"github.com/arashthr/shelfmark/internal/logging"
	"github.com/arashthr/shelfmark/internal/logging/loggercontext"
	"github.com/arashthr/shelfmark/internal/ratelimit"
)

const requestIDHeader = "X-Request-Id"

// LoggerMiddleware attaches a request-scoped logger carrying a request id.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t1 := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		reqLogger := logging.Logger.With(
			"req_id", requestID,
			"req_path", r.URL.Path,
			"req_method", r.Method,
		)
		ctx := loggercontext.WithLogger(r.Context(), reqLogger)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Header().Set(requestIDHeader, requestID)

		defer func() {
			reqLogger.Debugw("http request", "from", r.RemoteAddr, "status", ww.Status(), "size", ww.BytesWritten(), "duration", time.Since(t1))
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

const rateLimitRemainingHeader = "X-RateLimit-Remaining"

// RateLimitMiddleware rejects clients that exceed rl with 429. Allowed
// requests carry the number of attempts left in the window.
func RateLimitMiddleware(rl *ratelimit.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ratelimit.GetClientIP(r)
			if !rl.Allow(ip) {
				w.Header().Set("Retry-After", strconv.Itoa(60))
				w.Header().Set(rateLimitRemainingHeader, "0")
				writeStoreError(w, r, fmt.Errorf("client %s: %w", ip, errors.ErrRateLimited), "RATE_LIMITED")
				return
			}
			if remaining := rl.Remaining(ip); remaining >= 0 {
				w.Header().Set(rateLimitRemainingHeader, strconv.Itoa(remaining))
			}
			next.ServeHTTP(w, r)
		})
	}
}
