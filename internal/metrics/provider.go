package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	serviceName         = "serverbook"
	meterName           = "serverbook"
	storeMutationCount  = "store_mutation_count"
	storeSize           = "store_size"
	persistFailureCount = "persist_failure_count"
)

// Provider sets up OpenTelemetry metrics and Prometheus exposition.
type Provider struct {
	provider *sdkmetric.MeterProvider
}

// NewProvider creates a new metrics provider.
func NewProvider() (*Provider, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}
	r := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.HostNameKey.String(hostname),
	)
	exporter, err := prometheus.New(prometheus.WithNamespace(serviceName))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(r),
	)
	otel.SetMeterProvider(provider)
	return &Provider{provider: provider}, nil
}

// Shutdown shuts down the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics at /metrics.
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

// NewStoreRecorder returns a StoreRecorder that records store_mutation_count,
// store_size, and persist_failure_count.
func NewStoreRecorder() (StoreRecorder, error) {
	meter := otel.Meter(meterName)
	mutations, err := meter.Int64Counter(storeMutationCount)
	if err != nil {
		return nil, fmt.Errorf("store_mutation_count counter: %w", err)
	}
	size, err := meter.Int64Gauge(storeSize)
	if err != nil {
		return nil, fmt.Errorf("store_size gauge: %w", err)
	}
	failures, err := meter.Int64Counter(persistFailureCount)
	if err != nil {
		return nil, fmt.Errorf("persist_failure_count counter: %w", err)
	}
	return &otelRecorder{mutations: mutations, size: size, failures: failures}, nil
}

type otelRecorder struct {
	mutations metric.Int64Counter
	size      metric.Int64Gauge
	failures  metric.Int64Counter
}

func (r *otelRecorder) RecordMutation(ctx context.Context, store, op string) {
	attrs := attribute.NewSet(
		attribute.String("store", store),
		attribute.String("op", op),
	)
	r.mutations.Add(ctx, 1, metric.WithAttributeSet(attrs))
}

func (r *otelRecorder) RecordSize(ctx context.Context, store string, size int64) {
	attrs := attribute.NewSet(attribute.String("store", store))
	r.size.Record(ctx, size, metric.WithAttributeSet(attrs))
}

func (r *otelRecorder) RecordPersistFailure(ctx context.Context, store, op, errType string) {
	attrs := attribute.NewSet(
		attribute.String("store", store),
		attribute.String("op", op),
		attribute.String("error", errType),
	)
	r.failures.Add(ctx, 1, metric.WithAttributeSet(attrs))
}
