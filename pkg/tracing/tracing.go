// Package tracing configures the OpenTelemetry provider used around delta computations.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"gitlab.com/tozd/go/errors"
)

// Span and attribute names shared by the instrumented packages.
const (
	SpanComputeFull  = "delta.compute_full"
	SpanComputeEdits = "delta.compute_edits"

	AttrURI              = "semdelta.uri"
	AttrResultID         = "semdelta.result_id"
	AttrPreviousResultID = "semdelta.previous_result_id"
	AttrDelta            = "semdelta.delta"
	AttrEdits            = "semdelta.edits"
	AttrValues           = "semdelta.values"
)

type Config struct {
	Enabled     bool
	Exporter    string // "stdout" or "none"
	ServiceName string
}

// Provider wraps the tracer provider so callers can flush it on exit.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	enabled  bool
}

// NewProvider builds a provider and installs it globally. Disabled tracing
// yields a no-op provider. The stdout exporter writes one JSON span per line to w.
func NewProvider(cfg Config, w io.Writer) (*Provider, error) {
	if !cfg.Enabled {
		noopProvider := noop.NewTracerProvider()
		return &Provider{
			tracer: noopProvider.Tracer("noop"),
		}, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "semdelta"
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	}

	switch cfg.Exporter {
	case "stdout", "":
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, errors.Errorf("creating stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithSyncer(exporter))
	case "none":
	default:
		return nil, errors.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		enabled:  true,
	}, nil
}

func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

func (p *Provider) Enabled() bool {
	return p.enabled
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	if err := p.provider.Shutdown(ctx); err != nil {
		return errors.Errorf("shutting down tracer provider: %w", err)
	}
	return nil
}

type providerKey struct{}

// WithContext stores p so commands deeper in the tree can reach its tracer.
func (p *Provider) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// TracerFromContext returns the tracer of the provider stored in ctx, or a
// tracer from the global provider when there is none.
func TracerFromContext(ctx context.Context) trace.Tracer {
	if p, ok := ctx.Value(providerKey{}).(*Provider); ok && p != nil {
		return p.Tracer()
	}
	return otel.Tracer("github.com/walteh/semdelta")
}
