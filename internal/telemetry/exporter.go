package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"agentmetrics/internal/importer"
	"agentmetrics/internal/metrics"
)

const (
	serviceName    = "agentmetrics"
	serviceVersion = "1.0.0"
)

// Config holds the OTLP exporter settings.
type Config struct {
	Enabled  bool
	Endpoint string
	Insecure bool
}

// Exporter exports ingestion metrics to an OTEL Collector.
type Exporter struct {
	provider      *sdkmetric.MeterProvider
	meter         metric.Meter
	sessionsTotal metric.Int64Counter
	tokensTotal   metric.Int64Counter
	costTotal     metric.Float64Counter
	toolErrors    metric.Int64Counter
	durationHist  metric.Float64Histogram
	filesTotal    metric.Int64Counter
}

// NewExporter creates a new OTEL metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	sessionsTotal, err := meter.Int64Counter(
		"agentmetrics_sessions_total",
		metric.WithDescription("Sessions ingested"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}

	tokensTotal, err := meter.Int64Counter(
		"agentmetrics_session_tokens_total",
		metric.WithDescription("Total tokens used in ingested sessions"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tokens counter: %w", err)
	}

	costTotal, err := meter.Float64Counter(
		"agentmetrics_session_cost_usd",
		metric.WithDescription("Total estimated cost in USD"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cost counter: %w", err)
	}

	toolErrors, err := meter.Int64Counter(
		"agentmetrics_tool_errors_total",
		metric.WithDescription("Failed tool calls in ingested sessions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tool errors counter: %w", err)
	}

	durationHist, err := meter.Float64Histogram(
		"agentmetrics_session_duration_seconds",
		metric.WithDescription("Session duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	filesTotal, err := meter.Int64Counter(
		"agentmetrics_import_files_total",
		metric.WithDescription("Trajectory files processed by batch imports"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating files counter: %w", err)
	}

	return &Exporter{
		provider:      provider,
		meter:         meter,
		sessionsTotal: sessionsTotal,
		tokensTotal:   tokensTotal,
		costTotal:     costTotal,
		toolErrors:    toolErrors,
		durationHist:  durationHist,
		filesTotal:    filesTotal,
	}, nil
}

// RecordSession exports metrics for one ingested session.
func (e *Exporter) RecordSession(ctx context.Context, m *metrics.SessionMetrics) {
	opt := metric.WithAttributes(
		attribute.String("source", m.Source),
		attribute.String("model", m.Model),
		attribute.String("final_status", m.FinalStatus),
	)

	e.sessionsTotal.Add(ctx, 1, opt)
	e.tokensTotal.Add(ctx, m.TokensIn+m.TokensOut, opt)
	e.costTotal.Add(ctx, m.CostUSD, opt)
	e.toolErrors.Add(ctx, m.ToolErrors, opt)
	e.durationHist.Record(ctx, m.DurationSeconds, opt)
}

// RecordRun exports the per-outcome file counts of a batch import.
func (e *Exporter) RecordRun(ctx context.Context, source string, summary *importer.Summary) {
	for outcome, count := range map[string]int{
		"imported": summary.Imported,
		"skipped":  summary.Skipped,
		"errored":  summary.Errored,
	} {
		if count == 0 {
			continue
		}
		e.filesTotal.Add(ctx, int64(count), metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("outcome", outcome),
		))
	}
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
