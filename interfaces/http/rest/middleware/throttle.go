package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
)

// ClientIP returns the caller's address without the port. RealIP should run
// first so proxy headers are honoured.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type windowed interface {
	Window() time.Duration
}

// Throttle limits requests per client IP. A throttler error lets the request
// through. record, when set, observes every decision. Rejected requests carry
// the throttler's window as Retry-After, or one minute if it has none.
func Throttle(throttler ratelimit.Throttler, record func(allowed bool), errs *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := throttler.Allow(r.Context(), ClientIP(r))
			if err != nil {
				logger.Warn("Throttle check failed", zap.Error(err))
				allowed = true
			}
			if record != nil {
				record(allowed)
			}
			if !allowed {
				retryAfter := time.Minute
				if tw, ok := throttler.(windowed); ok {
					retryAfter = tw.Window()
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				errs.HandleStatus(w, r, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
