package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// upstream ids (load balancer, frontend) are kept only when they are short
// and log-safe
var upstreamRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// RequestID tags each request with an id that is echoed back in the
// response header, attached to every log line and returned in error bodies.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !upstreamRequestID.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
