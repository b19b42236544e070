package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"heart-risk-workers/internal/common/config"
)

// EnableTracing exports spans to a Jaeger collector. Without it StartSpan
// uses the global tracer, which is a no-op unless something else installed one.
func (o *Observability) EnableTracing(cfg config.TracingConfig) error {
	if !cfg.Enabled {
		return nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	if err != nil {
		return fmt.Errorf("failed to create jaeger exporter: %w", err)
	}

	o.UseTracerProvider(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", o.serviceName),
		)),
	))

	o.log.Info("Tracing enabled", map[string]interface{}{
		"endpoint":    cfg.JaegerEndpoint,
		"sampleRatio": cfg.SampleRatio,
	})
	return nil
}

// UseTracerProvider installs provider globally and for StartSpan.
func (o *Observability) UseTracerProvider(provider *sdktrace.TracerProvider) {
	otel.SetTracerProvider(provider)
	o.tracerProvider = provider
	o.tracer = provider.Tracer(o.serviceName)
}

func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(o.serviceName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
