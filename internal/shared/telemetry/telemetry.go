// Package telemetry wires OpenTelemetry for the API and notifier processes:
// traces go to an OTLP collector and metrics are scraped by Prometheus.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	ServiceName string
	Environment string
	// OTLPEndpoint is the collector address. Empty keeps spans in process.
	OTLPEndpoint string
	// MetricsPort serves /metrics. Empty disables the scrape endpoint.
	MetricsPort string
	// SampleRatio is the fraction of root traces recorded, in [0, 1].
	SampleRatio float64
}

// stack collects teardown steps in start order.
type stack []func(context.Context) error

func (s stack) shutdown(ctx context.Context) error {
	var errs []error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown: %w", errors.Join(errs...))
	}
	return nil
}

// Init installs the global tracer and meter providers. The returned function
// flushes pending spans and stops the metrics server; it is safe to call even
// when Init fails part way.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	var steps stack

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return steps.shutdown, fmt.Errorf("build resource: %w", err)
	}

	reader, err := prometheus.New()
	if err != nil {
		return steps.shutdown, fmt.Errorf("create prometheus exporter: %w", err)
	}
	meters := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(meters)
	steps = append(steps, meters.Shutdown)

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRatio)),
	}
	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return steps.shutdown, fmt.Errorf("create trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	tracer := sdktrace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(tracer)
	steps = append(steps, tracer.Shutdown)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.MetricsPort != "" {
		srv := newMetricsServer(cfg.MetricsPort)
		go func() {
			slog.Info("Metrics server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server error", "error", err)
			}
		}()
		steps = append(steps, srv.Shutdown)
	}

	slog.Info("OpenTelemetry initialized",
		"service", cfg.ServiceName,
		"otlp_endpoint", cfg.OTLPEndpoint,
		"metrics_port", cfg.MetricsPort,
		"sample_ratio", cfg.SampleRatio,
	)
	return steps.shutdown, nil
}

// newSampler honours the caller's sampling decision and samples new roots
// by trace ID.
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func newMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}
