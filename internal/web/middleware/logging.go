package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/faceverify/internal/logging"
)

// RequestLogger stores a request-scoped log entry in the context and logs every
// finished request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		entry := logging.Logger().WithFields(logging.Fields{
			"http_request_id": chiMiddleware.GetReqID(r.Context()),
			"remote":          r.RemoteAddr,
		})
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logging.WithContext(r.Context(), entry)))

		entry.WithFields(logging.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
