package webhook

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
)

const requestIDHeader = "X-Request-ID"

func logAccess(r *http.Request, status, size int, elapsed time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("elapsed", elapsed).
		Msg("request")
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				hlog.FromRequest(r).Error().Str("path", r.URL.Path).Msgf("panic recovered: %v", v)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
