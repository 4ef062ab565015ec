package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// MonitoringMiddleware combines request IDs, tracing, metrics and request logging
type MonitoringMiddleware struct {
	metrics    *MetricsCollector
	tracing    *TracingManager
	logger     *logger.Logger
	endpointOf func(*http.Request) string
}

// NewMonitoringMiddleware creates a new monitoring middleware. endpointOf maps
// a request to its route label; nil uses the raw path.
func NewMonitoringMiddleware(metrics *MetricsCollector, tracing *TracingManager, log *logger.Logger, endpointOf func(*http.Request) string) *MonitoringMiddleware {
	if endpointOf == nil {
		endpointOf = func(r *http.Request) string { return r.URL.Path }
	}
	return &MonitoringMiddleware{
		metrics:    metrics,
		tracing:    tracing,
		logger:     log,
		endpointOf: endpointOf,
	}
}

// Handler wraps next with monitoring
func (mm *MonitoringMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), logger.RequestIDKey, requestID)

		route := mm.endpointOf(r)
		ctx, span := mm.tracing.StartHTTPSpan(ctx, r.Method, route, propagation.HeaderCarrier(r.Header))
		defer span.End()
		span.SetAttributes(attribute.String("request.id", requestID))

		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		wrapper.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(wrapper, r.WithContext(ctx))

		duration := time.Since(start)
		mm.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(wrapper.statusCode), duration)

		span.SetAttributes(attribute.Int("http.status_code", wrapper.statusCode))
		if wrapper.statusCode >= 500 {
			span.SetAttributes(attribute.Bool("error", true))
			mm.metrics.RecordSystemError("http_5xx", "http")
		}

		mm.logger.HTTPRequest(ctx, r.Method, r.URL.Path, r.RemoteAddr, wrapper.statusCode, duration)
	})
}
