// Package middleware holds the API's panic recovery.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/lewisedginton/rota/pkg/logger"
)

// RecoveryConfig configures Recovery.
type RecoveryConfig struct {
	Logger           logger.Logger
	EnableStackTrace bool
	// Message is the "error" value of the JSON body written after a panic.
	Message string
}

func DefaultRecoveryConfig(log logger.Logger) RecoveryConfig {
	return RecoveryConfig{
		Logger:           log,
		EnableStackTrace: true,
		Message:          "internal server error",
	}
}

// ErrorBody is the JSON error shape shared by the API handlers.
type ErrorBody struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Recovery turns a handler panic into a logged 500 with an ErrorBody. An
// http.ErrAbortHandler panic is re-raised so net/http can drop the connection.
func Recovery(cfg RecoveryConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Message == "" {
		cfg.Message = "internal server error"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rec)
				}
				handlePanic(w, r, rec, cfg)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func handlePanic(w http.ResponseWriter, r *http.Request, rec any, cfg RecoveryConfig) {
	id := logger.GetCorrelationIDFromContext(r.Context())
	log := logger.GetLoggerFromContext(r.Context(), cfg.Logger)

	fields := []logger.LogField{
		logger.StringField("panic", fmt.Sprintf("%v", rec)),
		logger.HTTPMethodField(r.Method),
		logger.HTTPPathField(r.URL.Path),
		logger.ClientIPField(ClientIP(r)),
	}
	if cfg.EnableStackTrace {
		fields = append(fields, logger.StringField("stack_trace", string(debug.Stack())))
	}
	log.Error("HTTP request panic recovered", fields...)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: cfg.Message, CorrelationID: id})
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
