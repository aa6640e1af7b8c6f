package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"keymint/internal/config"
)

const (
	ServiceName    = "keymint-license-server"
	ServiceVersion = "1.0.0"
	MeterName      = "keymint"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel initializes OpenTelemetry tracing and metrics per configuration
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing {
		exporter, err := stdouttrace.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName)
		otel.SetTracerProvider(tp)
	} else {
		providers.Tracer = otel.Tracer(MeterName)
	}

	if cfg.EnableMetrics {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName)
		providers.PrometheusHTTP = promhttp.Handler()
		otel.SetMeterProvider(mp)
	} else {
		providers.Meter = otel.Meter(MeterName)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "telemetry initialized",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// Shutdown flushes and stops the telemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("tracer provider shutdown: %w", err)
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("meter provider shutdown: %w", err)
		}
	}
	return nil
}

// LicenseMetrics holds counters for license lifecycle operations
type LicenseMetrics struct {
	SerialsIssued       metric.Int64Counter
	ActivationAttempts  metric.Int64Counter
	ActivationSuccesses metric.Int64Counter
	StoreSaveFailures   metric.Int64Counter
}

// NewLicenseMetrics registers the license lifecycle instruments on the meter
func NewLicenseMetrics(meter metric.Meter) (*LicenseMetrics, error) {
	issued, err := meter.Int64Counter("keymint_serials_issued_total",
		metric.WithDescription("Number of serial keys issued"))
	if err != nil {
		return nil, err
	}

	attempts, err := meter.Int64Counter("keymint_activation_attempts_total",
		metric.WithDescription("Number of activation attempts"))
	if err != nil {
		return nil, err
	}

	successes, err := meter.Int64Counter("keymint_activation_successes_total",
		metric.WithDescription("Number of successful activations"))
	if err != nil {
		return nil, err
	}

	saveFailures, err := meter.Int64Counter("keymint_store_save_failures_total",
		metric.WithDescription("Number of license store save failures"))
	if err != nil {
		return nil, err
	}

	return &LicenseMetrics{
		SerialsIssued:       issued,
		ActivationAttempts:  attempts,
		ActivationSuccesses: successes,
		StoreSaveFailures:   saveFailures,
	}, nil
}

// RecordActivationAttempt increments the attempt counter with a result attribute
func (m *LicenseMetrics) RecordActivationAttempt(ctx context.Context, result string) {
	if m == nil || m.ActivationAttempts == nil {
		return
	}
	m.ActivationAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
