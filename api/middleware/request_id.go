package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/pkg/logger"
)

const headerRequestID = "X-Request-Id"

// RequestID honors an inbound request id or mints one, echoes it on the
// response, and threads it through the log context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(headerRequestID))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(headerRequestID, id)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
