// Package tracing installs the OpenTelemetry tracer provider used for query spans.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/mcstatus/internal/vars"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config holds tracing options.
type Config struct {
	// betteralign:ignore

	Output      string  `long:"output" env:"OUTPUT" description:"Write spans as JSON to file, '-' for stdout, tracing is disabled when empty"`
	SampleRatio float64 `long:"sample-ratio" env:"SAMPLE_RATIO" description:"Fraction of queries traced" default:"1"`
}

// Validate checks the sample ratio.
func (c Config) Validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return errors.New("trace-sample-ratio must be between 0 and 1")
	}

	return nil
}

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

// Setup sets the global tracer provider according to cfg.
// With an empty output the global no-op provider is kept.
func Setup(cfg Config) (ShutdownFunc, error) {
	if cfg.Output == "" {
		return func(context.Context) error { return nil }, nil
	}

	var (
		w    io.Writer = os.Stdout
		file *os.File
	)
	if cfg.Output != "-" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace output: %w", err)
		}
		w, file = f, f
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := NewProvider(exp, cfg.SampleRatio)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if file != nil {
			err = errors.Join(err, file.Close())
		}
		return err
	}, nil
}

// NewProvider creates a batching tracer provider for exp that samples the given fraction of root spans.
func NewProvider(exp sdktrace.SpanExporter, ratio float64) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", vars.Name),
			attribute.String("service.version", vars.Version),
		)),
	)
}
