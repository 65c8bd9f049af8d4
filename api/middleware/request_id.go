package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/arjunmehta/cartly-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID echoes the caller's request id, minting one when absent, and
// stamps it on the log context for the rest of the request.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := logg.WithRequestID(r.Context(), reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
