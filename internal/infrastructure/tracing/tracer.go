// Package tracing provides OpenTelemetry-based tracing infrastructure.
// It supports stdout and OTLP exporters and provides span helpers for sync
// runs, per-file processing and wiki API requests.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the name used for the wikisync tracer.
	TracerName = "github.com/jbctechsolutions/wikisync"

	// Version is the semantic version of the tracer.
	Version = "1.0.0"
)

// ExporterType defines the type of trace exporter.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// Config holds tracing configuration.
type Config struct {
	Enabled      bool
	ExporterType ExporterType
	OTLPEndpoint string
	ServiceName  string
	Environment  string
	SampleRate   float64
	Output       io.Writer // stdout exporter only
}

// DefaultConfig returns sensible default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		ExporterType: ExporterNone,
		ServiceName:  "wikisync",
		Environment:  "development",
		SampleRate:   1.0,
	}
}

// Tracer wraps an OpenTelemetry tracer with sync-specific spans.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	config   Config
}

var (
	global     *Tracer
	globalOnce sync.Once
)

// Init initializes the global tracer with the provided configuration.
func Init(ctx context.Context, cfg Config) (*Tracer, error) {
	var err error
	globalOnce.Do(func() {
		global, err = New(ctx, cfg)
	})
	return global, err
}

// Default returns the global tracer, or a no-op tracer if not initialized.
func Default() *Tracer {
	if global == nil {
		return Noop()
	}
	return global
}

// Noop returns a tracer that records nothing.
func Noop() *Tracer {
	return &Tracer{
		tracer: noop.NewTracerProvider().Tracer(TracerName),
		config: DefaultConfig(),
	}
}

// New creates a new Tracer with the provided configuration.
func New(ctx context.Context, cfg Config) (*Tracer, error) {
	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: cfg,
		}, nil
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	// Not merged with resource.Default(): its schema URL may conflict with our semconv version.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(Version)),
		provider: provider,
		config:   cfg,
	}, nil
}

func createExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		opts := []stdouttrace.Option{
			stdouttrace.WithPrettyPrint(),
		}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)

	case ExporterOTLP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithInsecure(),
		}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}
}

// Shutdown flushes and stops the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start starts a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// --- Sync span helpers ---

// RunSpan covers one sync run.
type RunSpan struct {
	span trace.Span
}

// StartRunSpan starts a span for a sync run.
func (t *Tracer) StartRunSpan(ctx context.Context, runID, team, destination string, dryRun bool) (context.Context, *RunSpan) {
	ctx, span := t.tracer.Start(ctx, "sync.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("sync.run_id", runID),
			attribute.String("sync.team", team),
			attribute.String("sync.destination", destination),
			attribute.Bool("sync.dry_run", dryRun),
		),
	)
	return ctx, &RunSpan{span: span}
}

// SetFileCount sets the number of discovered files.
func (rs *RunSpan) SetFileCount(count int) {
	rs.span.SetAttributes(attribute.Int("sync.files", count))
}

// SetOutcome records per-state counts.
func (rs *RunSpan) SetOutcome(created, updated, skipped int) {
	rs.span.SetAttributes(
		attribute.Int("sync.created", created),
		attribute.Int("sync.updated", updated),
		attribute.Int("sync.skipped", skipped),
	)
}

// End ends the run span with success status.
func (rs *RunSpan) End() {
	rs.span.SetStatus(codes.Ok, "sync completed")
	rs.span.End()
}

// EndWithError ends the run span with error status.
func (rs *RunSpan) EndWithError(err error) {
	rs.span.RecordError(err)
	rs.span.SetStatus(codes.Error, err.Error())
	rs.span.End()
}

// FileSpan covers the processing of one local file.
type FileSpan struct {
	span trace.Span
}

// StartFileSpan starts a span for one file.
func (t *Tracer) StartFileSpan(ctx context.Context, path, fullName string) (context.Context, *FileSpan) {
	ctx, span := t.tracer.Start(ctx, "sync.file",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("file.path", path),
			attribute.String("document.full_name", fullName),
		),
	)
	return ctx, &FileSpan{span: span}
}

// SetState records the terminal state of the file.
func (fs *FileSpan) SetState(state string, number int) {
	fs.span.SetAttributes(
		attribute.String("file.state", state),
		attribute.Int("document.number", number),
	)
}

// End ends the file span with success status.
func (fs *FileSpan) End() {
	fs.span.SetStatus(codes.Ok, "file synced")
	fs.span.End()
}

// EndWithError ends the file span with error status.
func (fs *FileSpan) EndWithError(err error) {
	fs.span.RecordError(err)
	fs.span.SetStatus(codes.Error, err.Error())
	fs.span.End()
}

// RequestSpan covers one wiki API call.
type RequestSpan struct {
	span trace.Span
}

// StartRequestSpan starts a client span for a wiki API request.
func (t *Tracer) StartRequestSpan(ctx context.Context, operation string) (context.Context, *RequestSpan) {
	ctx, span := t.tracer.Start(ctx, "wiki.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("wiki.operation", operation)),
	)
	return ctx, &RequestSpan{span: span}
}

// SetAttempt records the attempt number of the logical operation.
func (rs *RequestSpan) SetAttempt(attempt int) {
	rs.span.SetAttributes(attribute.Int("wiki.attempt", attempt))
}

// SetRateLimit records the rate-limit state returned with the response.
func (rs *RequestSpan) SetRateLimit(remaining, limit int) {
	rs.span.SetAttributes(
		attribute.Int("wiki.ratelimit.remaining", remaining),
		attribute.Int("wiki.ratelimit.limit", limit),
	)
}

// End ends the request span with success status.
func (rs *RequestSpan) End() {
	rs.span.SetStatus(codes.Ok, "request completed")
	rs.span.End()
}

// EndWithError ends the request span with error status.
func (rs *RequestSpan) EndWithError(err error) {
	rs.span.RecordError(err)
	rs.span.SetStatus(codes.Error, err.Error())
	rs.span.End()
}

// AddWaitEvent records a pacing or cooldown wait on the current span.
func AddWaitEvent(ctx context.Context, kind string, wait time.Duration) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("ratelimit."+kind, trace.WithAttributes(
		attribute.Float64("wait_seconds", wait.Seconds()),
	))
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	trace.SpanFromContext(ctx).RecordError(err)
}
