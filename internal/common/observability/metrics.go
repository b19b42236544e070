package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"heart-risk-workers/internal/common/logger"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	serviceName    string
	log            logger.Logger

	jobCounter         otelmetric.Int64Counter
	jobDuration        otelmetric.Float64Histogram
	predictionCounter  otelmetric.Int64Counter
	predictionDuration otelmetric.Float64Histogram
}

// New wires an OTel meter provider onto the prometheus registry. A failed
// exporter leaves the instruments nil and every Record call a no-op.
func New(serviceName string, log logger.Logger) *Observability {
	o := &Observability{
		serviceName: serviceName,
		log:         log,
		tracer:      otel.Tracer(serviceName),
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", map[string]interface{}{"error": err})
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	o.jobCounter, _ = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	o.predictionCounter, _ = meter.Int64Counter(
		"risk.predictions",
		otelmetric.WithDescription("Heart risk predictions by label"),
	)
	o.predictionDuration, _ = meter.Float64Histogram(
		"risk.prediction.duration",
		otelmetric.WithDescription("End to end prediction latency"),
		otelmetric.WithUnit("ms"),
	)

	o.meterProvider = provider
	o.meter = meter
	return o
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

// RecordPrediction counts one served prediction and its latency.
func (o *Observability) RecordPrediction(ctx context.Context, variant, label string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("variant", variant),
		attribute.String("label", label),
	)
	if o.predictionCounter != nil {
		o.predictionCounter.Add(ctx, 1, attrs)
	}
	if o.predictionDuration != nil {
		o.predictionDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			o.log.Warn("Meter provider shutdown failed", map[string]interface{}{"error": err})
		}
	}
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			o.log.Warn("Tracer provider shutdown failed", map[string]interface{}{"error": err})
		}
	}
}
