// Package observe provides OpenTelemetry metric instruments and slog logger
// construction for hearback. Tests should build instruments with NewMetrics
// and their own MeterProvider instead of DefaultMetrics.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/verte-zerg/hearback"

// Metrics holds every instrument the application records. All fields are
// safe for concurrent use.
type Metrics struct {
	// AttemptsScored counts scored attempts. Attribute: deck.
	AttemptsScored metric.Int64Counter

	// AlignDuration tracks time spent scoring one attempt.
	AlignDuration metric.Float64Histogram

	// AttemptAccuracy tracks per-attempt accuracy in percent.
	AttemptAccuracy metric.Float64Histogram

	// CategoryHits counts categorized events. Attribute: category.
	CategoryHits metric.Int64Counter

	// InsightLookups counts insight cache lookups. Attribute: result
	// (hit, miss, error).
	InsightLookups metric.Int64Counter

	// InsightEnrichments counts enricher calls that actually ran.
	InsightEnrichments metric.Int64Counter
}

var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

var accuracyBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AttemptsScored, err = m.Int64Counter("hearback.attempts.scored",
		metric.WithDescription("Total attempts scored by deck."),
	); err != nil {
		return nil, err
	}
	if met.AlignDuration, err = m.Float64Histogram("hearback.align.duration",
		metric.WithDescription("Latency of scoring one attempt."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AttemptAccuracy, err = m.Float64Histogram("hearback.attempt.accuracy",
		metric.WithDescription("Per-attempt accuracy in percent."),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(accuracyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CategoryHits, err = m.Int64Counter("hearback.category.hits",
		metric.WithDescription("Total categorized events by category."),
	); err != nil {
		return nil, err
	}
	if met.InsightLookups, err = m.Int64Counter("hearback.insight.lookups",
		metric.WithDescription("Insight cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.InsightEnrichments, err = m.Int64Counter("hearback.insight.enrichments",
		metric.WithDescription("Insight enricher invocations."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics built on the global
// provider. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordAttempt records one scored attempt.
func (m *Metrics) RecordAttempt(ctx context.Context, deck string, seconds, accuracyPercent float64) {
	m.AttemptsScored.Add(ctx, 1, metric.WithAttributes(attribute.String("deck", deck)))
	m.AlignDuration.Record(ctx, seconds)
	m.AttemptAccuracy.Record(ctx, accuracyPercent)
}

// RecordCategory records one categorized event.
func (m *Metrics) RecordCategory(ctx context.Context, category string) {
	m.CategoryHits.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

// RecordInsightLookup records a cache lookup outcome: hit, miss or error.
func (m *Metrics) RecordInsightLookup(ctx context.Context, result string) {
	m.InsightLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
