package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/PabloGalante/mealprep-agent"

// ExporterType selects where spans go.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
)

// Options control provider construction.
type Options struct {
	ServiceName string
	Version     string
	Level       slog.Level
	Exporter    ExporterType
	// LogOutput defaults to stdout.
	LogOutput io.Writer
	// TraceOutput defaults to stdout; only used by the stdout exporter.
	TraceOutput io.Writer
}

// Provider is the observability context built once at process start and
// handed to every component that logs, traces or records metrics.
type Provider struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *Metrics

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *prometheus.Registry
}

// New wires slog, an OpenTelemetry tracer provider and a meter provider whose
// reader is a Prometheus registry.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "mealprep-agent"
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stdout
	}
	if opts.TraceOutput == nil {
		opts.TraceOutput = os.Stdout
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", opts.ServiceName)}
	if opts.Version != "" {
		attrs = append(attrs, attribute.String("service.version", opts.Version))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	switch opts.Exporter {
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(opts.TraceOutput), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("build span exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	case ExporterNone, "":
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", opts.Exporter)
	}
	tracerProvider := sdktrace.NewTracerProvider(tpOpts...)

	registry := prometheus.NewRegistry()
	reader, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, fmt.Errorf("build prometheus reader: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)

	meter := meterProvider.Meter(instrumentationName)
	return &Provider{
		logger:         NewLogger(opts.LogOutput, opts.Level),
		tracer:         tracerProvider.Tracer(instrumentationName),
		meter:          meter,
		metrics:        newMetrics(meter),
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		registry:       registry,
	}, nil
}

// Nop returns a provider that discards logs, spans and metrics. Used in tests.
func Nop() *Provider {
	meter := metricnoop.NewMeterProvider().Meter(instrumentationName)
	return &Provider{
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		tracer:  tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:   meter,
		metrics: newMetrics(meter),
	}
}

// WithLogger returns a copy of p that logs to logger.
func (p *Provider) WithLogger(logger *slog.Logger) *Provider {
	cp := *p
	cp.logger = logger
	return &cp
}

func (p *Provider) Logger() *slog.Logger { return p.logger }

// LoggerFromContext returns the base logger enriched with the request id in ctx.
func (p *Provider) LoggerFromContext(ctx context.Context) *slog.Logger {
	return LoggerFromContext(ctx, p.logger)
}

func (p *Provider) Tracer() trace.Tracer { return p.tracer }

func (p *Provider) Meter() metric.Meter { return p.meter }

func (p *Provider) Metrics() *Metrics { return p.metrics }

// MetricsHandler serves the Prometheus exposition of the meter.
func (p *Provider) MetricsHandler() http.Handler {
	if p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes spans and metrics. Errors from both providers are combined.
func (p *Provider) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("meter provider: %w", err))
		}
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("tracer provider: %w", err))
		}
	}
	return result.ErrorOrNil()
}
