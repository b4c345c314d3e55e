package observability

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// TracingConfig is read from the environment. Tracing stays off unless an
// endpoint is set.
type TracingConfig struct {
	Endpoint    string  `env:"GOTCHI_OTEL_ENDPOINT"`
	Enabled     bool    `env:"GOTCHI_OTEL_ENABLED" envDefault:"true"`
	SampleRatio float64 `env:"GOTCHI_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Active reports whether SetupTracing would install a provider.
func (c TracingConfig) Active() bool {
	return c.Enabled && c.Endpoint != ""
}

// LoadTracingConfig parses TracingConfig from the process environment.
func LoadTracingConfig() (TracingConfig, error) {
	var cfg TracingConfig
	if err := env.Parse(&cfg); err != nil {
		return TracingConfig{}, fmt.Errorf("parsing tracing env: %w", err)
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return TracingConfig{}, fmt.Errorf("GOTCHI_OTEL_SAMPLE_RATIO must be in [0,1], got %v", cfg.SampleRatio)
	}
	return cfg, nil
}

// SetupTracing installs a global OTLP/HTTP tracer provider for serviceName.
//
// Postcondition: the returned shutdown flushes pending spans; when cfg is not
// Active it is a no-op and the global provider is left untouched.
func SetupTracing(ctx context.Context, cfg TracingConfig, serviceName string, logger *zap.Logger) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Active() {
		logger.Debug("tracing disabled")
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("creating otlp exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return noop, fmt.Errorf("building trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Info("tracing enabled",
		zap.String("endpoint", cfg.Endpoint),
		zap.Float64("sample_ratio", cfg.SampleRatio),
	)
	return tp.Shutdown, nil
}
