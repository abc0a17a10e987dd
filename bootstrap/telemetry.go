package bootstrap

import (
	"context"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/plugwire/component"
	"github.com/kbukum/plugwire/observability"
)

// tracingComponent owns the OTLP tracer provider.
type tracingComponent struct {
	cfg      *observability.TracerConfig
	provider *sdktrace.TracerProvider
}

func newTracingComponent(cfg *observability.TracerConfig) *tracingComponent {
	return &tracingComponent{cfg: cfg}
}

func (c *tracingComponent) Name() string { return "tracing" }

func (c *tracingComponent) Start(ctx context.Context) error {
	tp, err := observability.InitTracer(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.provider = tp
	return nil
}

func (c *tracingComponent) Stop(ctx context.Context) error {
	if c.provider == nil {
		return nil
	}
	return c.provider.Shutdown(ctx)
}

func (c *tracingComponent) Health(context.Context) component.Health {
	return providerHealth(c.Name(), c.provider != nil)
}

func (c *tracingComponent) Describe() component.Description {
	return component.Description{
		Name:    "OTLP Tracing",
		Type:    "telemetry",
		Details: fmt.Sprintf("%s sample=%.2f", c.cfg.Endpoint, c.cfg.SampleRate),
	}
}

// metricsComponent owns the OTLP meter provider.
type metricsComponent struct {
	cfg      *observability.MeterConfig
	provider *sdkmetric.MeterProvider
}

func newMetricsComponent(cfg *observability.MeterConfig) *metricsComponent {
	return &metricsComponent{cfg: cfg}
}

func (c *metricsComponent) Name() string { return "metrics" }

func (c *metricsComponent) Start(ctx context.Context) error {
	mp, err := observability.InitMeter(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.provider = mp
	return nil
}

func (c *metricsComponent) Stop(ctx context.Context) error {
	if c.provider == nil {
		return nil
	}
	return c.provider.Shutdown(ctx)
}

func (c *metricsComponent) Health(context.Context) component.Health {
	return providerHealth(c.Name(), c.provider != nil)
}

func (c *metricsComponent) Describe() component.Description {
	return component.Description{
		Name:    "OTLP Metrics",
		Type:    "telemetry",
		Details: fmt.Sprintf("%s every %s", c.cfg.Endpoint, c.cfg.Interval),
	}
}

func providerHealth(name string, started bool) component.Health {
	if !started {
		return component.Health{Name: name, Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: name, Status: component.StatusHealthy}
}
