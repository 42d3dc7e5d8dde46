// Package telemetry exports Agent Loop spans (LLM calls, tool dispatch)
// as OpenTelemetry traces.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/chebykinn/browser-code/internal/config"
)

var tracer = otel.Tracer("browsercoded/agent")

// Setup installs an OTLP tracer provider per cfg and returns a shutdown
// func to flush spans on daemon exit. Disabled config installs the
// process-wide no-op provider otel already defaults to, so every
// Start*Span call below is a harmless no-op.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	var exp sdktrace.SpanExporter
	var err error
	if cfg.Protocol == "http" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		exp, err = otlptracehttp.New(ctx, opts...)
	} else {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		exp, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "browsercoded"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// StartLLMSpan starts a span covering one model call within a turn.
func StartLLMSpan(ctx context.Context, provider, model string, turn int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "llm_call", trace.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.Int("turn", turn),
	))
}

// StartToolSpan starts a span covering one tool dispatch.
func StartToolSpan(ctx context.Context, toolName, tabID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "tool_call", trace.WithAttributes(
		attribute.String("tool", toolName),
		attribute.String("tab_id", tabID),
	))
}

// StartRunSpan starts a span covering an entire agent run (all turns).
func StartRunSpan(ctx context.Context, tabID, mode string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "agent_run", trace.WithAttributes(
		attribute.String("tab_id", tabID),
		attribute.String("mode", mode),
	))
}

// EndSpan finalizes a span, recording an error status when err != nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
