package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Endpoint is an OTLP/HTTP traces endpoint split into the parts the
// exporter options need.
type Endpoint struct {
	Host     string
	Path     string
	Insecure bool
}

// ParseEndpoint accepts a full URL or a host:port.
func ParseEndpoint(raw string) (Endpoint, error) {
	ep := Endpoint{Host: "localhost:4318", Path: "/v1/traces", Insecure: true}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ep, nil
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		ep.Host = raw
		return ep, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("telemetry: parse endpoint: %w", err)
	}
	if u.Host != "" {
		ep.Host = u.Host
	}
	if u.Path != "" {
		ep.Path = u.Path
	}
	ep.Insecure = u.Scheme == "http"
	return ep, nil
}

// InitTracer installs a global tracer provider exporting to endpoint and
// returns its shutdown function.
func InitTracer(ctx context.Context, serviceName, version string, ep Endpoint) (func(context.Context) error, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(ep.Host),
		otlptracehttp.WithURLPath(ep.Path),
	}
	if ep.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
