package httpmiddleware

import (
	"net/http"

	"github.com/lewisedginton/rota/pkg/logger"
)

// CorrelationID makes sure every request carries a UUID correlation ID in both the
// X-Correlation-ID header and the request context. A client supplied value is kept
// only when it parses as a UUID. The ID is echoed on the response.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, id := logger.EnsureHTTPCorrelationID(r)
			w.Header().Set(logger.CorrelationIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}
