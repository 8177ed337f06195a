// Package middleware provides net/http wrappers shared by the service mode.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/isometry/echo-api/internal/helpers"
	"github.com/isometry/echo-api/internal/models"
	"github.com/pkg/errors"
)

// Recovery turns a panicking handler into a 500 response and logs the stack.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						slog.Any("error", rec),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					helpers.RespondHTTP(models.Response{
						Body:       []byte(http.StatusText(http.StatusInternalServerError)),
						StatusCode: http.StatusInternalServerError,
					}, errors.Errorf("panic: %v", rec), w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
