package observability

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// EnableTracing installs a tracer provider that batches spans to a Jaeger
// collector endpoint such as http://localhost:14268/api/traces.
func (o *Observability) EnableTracing(endpoint string) error {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return fmt.Errorf("create jaeger exporter: %w", err)
	}

	o.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", o.serviceName),
		)),
	)
	otel.SetTracerProvider(o.tracerProvider)
	return nil
}

// EnableTracingWith installs a tracer provider over a caller-supplied span
// processor. Tests use it with an in-memory recorder.
func (o *Observability) EnableTracingWith(processor sdktrace.SpanProcessor) {
	o.tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(processor))
}
