package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kelmah/sessionkit/logger"
)

// InitMeter installs a global meter provider with a periodic OTLP HTTP reader.
// The caller shuts the provider down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricRequests        = "session.requests"
	MetricRefreshes       = "session.refreshes"
	MetricRequestDuration = "session.request.duration"
)

// Refresh results recorded on session.refreshes.
const (
	RefreshSucceeded = "success"
	RefreshFailed    = "failure"
	RefreshShared    = "shared"
)

// SessionMetrics holds the session client instruments.
type SessionMetrics struct {
	requests  metric.Int64Counter
	refreshes metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewSessionMetrics creates the session instruments on meter.
func NewSessionMetrics(meter metric.Meter) (*SessionMetrics, error) {
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Session requests by final outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequests, err)
	}

	refreshes, err := meter.Int64Counter(MetricRefreshes,
		metric.WithDescription("Token refresh attempts by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRefreshes, err)
	}

	duration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("End-to-end session request duration including refresh and resubmission"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRequestDuration, err)
	}

	return &SessionMetrics{
		requests:  requests,
		refreshes: refreshes,
		duration:  duration,
	}, nil
}

// RecordRequest counts one completed session request and its duration.
func (m *SessionMetrics) RecordRequest(ctx context.Context, method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordRefresh counts one refresh attempt with its result.
func (m *SessionMetrics) RecordRefresh(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrResult, result)))
}
