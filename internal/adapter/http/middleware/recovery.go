package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// Recovery converts handler panics into 500 responses. It logs through the
// injected service logger so panic reports carry the same fields as the rest
// of the request log.
type Recovery struct {
	logger zerolog.Logger
}

// NewRecovery creates a new Recovery middleware.
func NewRecovery(logger zerolog.Logger) *Recovery {
	return &Recovery{logger: logger}
}

// Wrap wraps an http.Handler with panic recovery.
func (m *Recovery) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.logger.Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("panic recovered")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
