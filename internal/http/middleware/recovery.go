package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/demarchi-food/pricecontrol-api/internal/domain"
	"go.uber.org/zap"
)

// Recovery converts panics into a 500 response. The stack trace is always
// logged but only echoed back to the caller outside production.
func Recovery(logger *zap.Logger, environment string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					stack := debug.Stack()
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", stack),
					)

					apiErr := domain.APIError{
						Type:   domain.ErrorTypeInternal,
						Title:  http.StatusText(http.StatusInternalServerError),
						Status: http.StatusInternalServerError,
					}
					if environment != "production" {
						apiErr.Detail = string(stack)
					}

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(apiErr)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
