package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/cinebase/pkg/logging"
	"go.uber.org/zap"
)

// LoggingContext attaches a request-scoped logger carrying the method, path
// and request id, and logs one line when the request completes.
func LoggingContext(baseLogger *zap.Logger) func(next http.Handler) http.Handler {
	if baseLogger == nil {
		baseLogger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := baseLogger.With(
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			if reqID := chimw.GetReqID(r.Context()); reqID != "" {
				reqLogger = reqLogger.With(zap.String("request_id", reqID))
			}
			if r.RemoteAddr != "" {
				reqLogger = reqLogger.With(zap.String("remote_ip", r.RemoteAddr))
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if cacheResult := ww.Header().Get("X-Cache"); cacheResult != "" {
				fields = append(fields, zap.String("cache_result", cacheResult))
			}

			switch {
			case status >= http.StatusInternalServerError:
				reqLogger.Error("request completed", fields...)
			default:
				reqLogger.Info("request completed", fields...)
			}
		})
	}
}
