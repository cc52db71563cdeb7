package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HTTPRecorder receives one observation per served request
type HTTPRecorder interface {
	ObserveHTTP(route, method string, code int, elapsed time.Duration)
}

// Observe logs each request and reports it to rec, labelled by the matched
// chi route pattern so path parameters do not explode label cardinality.
func Observe(rec HTTPRecorder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			route := routePattern(r)
			if rec != nil {
				rec.ObserveHTTP(route, r.Method, code, elapsed)
			}
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.String("path", r.URL.Path),
				zap.Int("status", code),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", elapsed),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
