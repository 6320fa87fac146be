package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	httpTracer = otel.Tracer("pocketbook/http")
	httpMeter  = otel.Meter("pocketbook/http")

	httpRequestDuration, _ = httpMeter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	httpRequestTotal, _ = httpMeter.Int64Counter("http.server.request.total",
		metric.WithDescription("Total HTTP requests"),
	)
	httpResponseSize, _ = httpMeter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Response body size"),
		metric.WithUnit("By"),
	)
)

// Tracing starts a server span per request and records request metrics.
// The span is renamed to the matched route once the mux has run, and only
// the route is used as a metric label so ids in paths stay out of it.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := httpTracer.Start(r.Context(), r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		req := r.WithContext(ctx)
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, req)

		status, route := rec.Status(), routeOf(req)
		span.SetName(route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		labels := metric.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		httpRequestDuration.Record(ctx, time.Since(start).Seconds(), labels)
		httpRequestTotal.Add(ctx, 1, labels)
		httpResponseSize.Record(ctx, int64(rec.bytes), labels)
	})
}
