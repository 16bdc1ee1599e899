package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/schoolwear/pkg/logger"
)

// DeviceIDHeader identifies the front end instance talking to the storefront.
const DeviceIDHeader = "X-Device-ID"

// RequestLogger stores a request-scoped logger in the context. Handlers read it
// back with logger.FromContext. Mount it after RequestLogging and Tracing so the
// correlation and span IDs are already set.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if id := r.Header.Get(DeviceIDHeader); id != "" {
				ctx = logger.WithDeviceID(ctx, id)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
