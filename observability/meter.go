package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/plugwire/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// WiringMetrics holds the instruments recorded during service wiring.
// A nil *WiringMetrics is valid and records nothing.
type WiringMetrics struct {
	registrations metric.Int64Counter
	skipped       metric.Int64Counter
	moduleLoads   metric.Int64Counter
	cacheHits     metric.Int64Counter
}

// NewWiringMetrics creates the wiring instruments on the given meter.
func NewWiringMetrics(meter metric.Meter) (*WiringMetrics, error) {
	registrations, err := meter.Int64Counter("wiring.registrations",
		metric.WithDescription("Registrations emitted into the container"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating wiring.registrations counter: %w", err)
	}

	skipped, err := meter.Int64Counter("wiring.skipped",
		metric.WithDescription("Services skipped because no implementation was found"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating wiring.skipped counter: %w", err)
	}

	moduleLoads, err := meter.Int64Counter("module.loads",
		metric.WithDescription("Module load attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating module.loads counter: %w", err)
	}

	cacheHits, err := meter.Int64Counter("resolver.cache_hits",
		metric.WithDescription("Module and type lookups served from cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolver.cache_hits counter: %w", err)
	}

	return &WiringMetrics{
		registrations: registrations,
		skipped:       skipped,
		moduleLoads:   moduleLoads,
		cacheHits:     cacheHits,
	}, nil
}

// RecordRegistration counts an emitted registration.
func (m *WiringMetrics) RecordRegistration(ctx context.Context, strategy string, keyed bool) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("keyed", keyed),
	))
}

// RecordSkip counts a service that was not registered.
func (m *WiringMetrics) RecordSkip(ctx context.Context, strategy, reason string) {
	if m == nil {
		return
	}
	m.skipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("reason", reason),
	))
}

// RecordModuleLoad counts a module load attempt.
func (m *WiringMetrics) RecordModuleLoad(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.moduleLoads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordCacheHit counts a lookup answered from one of the wiring caches.
func (m *WiringMetrics) RecordCacheHit(ctx context.Context, cache string) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cache)))
}
