package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/crabby-crew/backend/internal/auth"
	"github.com/crabby-crew/backend/internal/httpx"
	"github.com/crabby-crew/backend/internal/logger"
	"github.com/crabby-crew/backend/internal/models"
)

// Session attaches the cookie's user to the request context. It never rejects
// a request; handlers decide whether a user is required.
func Session(sessions *auth.Manager, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessions.Resolve(r.Context(), r)
			switch {
			case err == nil:
				r = r.WithContext(auth.WithUserID(r.Context(), s.UserID))
			case !errors.Is(err, auth.ErrSessionNotFound):
				log.Warn("session lookup failed", "path", r.URL.Path, "error", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Logger logs one line per request with its status and duration.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

// Recover turns a handler panic into a 500 response.
func Recover(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic in handler",
						"method", r.Method, "path", r.URL.Path,
						"panic", rec, "stack", string(debug.Stack()))
					httpx.WriteJSON(w, http.StatusInternalServerError, models.ErrorResponse{Message: "Internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
