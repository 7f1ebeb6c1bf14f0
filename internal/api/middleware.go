package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/samvad-hq/catalog-relay/internal/logger"
)

// accessLog writes one structured entry per request.
func accessLog(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.InfoObj("http request", "http_request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"elapsed_ms":  time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
				"remote_addr": r.RemoteAddr,
			})
		})
	}
}
