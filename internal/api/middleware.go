package api

import (
	"net/http"
	"strconv"
	"time"

	"ats-backend/internal/common/logger"
	"ats-backend/internal/common/metrics"
	"ats-backend/internal/common/observability"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with request logging and metrics. The route
// label is the registered pattern, not the raw path, to keep label
// cardinality bounded.
func instrument(route string, log logger.Logger, obs *observability.Observability, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
		if obs != nil {
			obs.RecordRequest(r.Context(), route, rec.status)
			obs.RecordRequestDuration(r.Context(), route, duration)
		}

		log.Info("Request handled", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": duration.Milliseconds(),
		})
	})
}

func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
