// Package observe provides observability primitives for marksense:
// OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Every silent drop in the engine (stale response, dictionary hit, text
// mismatch, out-of-bounds position) must be countable, so drops carry a
// reason attribute. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all marksense metrics.
const meterName = "github.com/victor-ca/marksense"

// Drop reasons recorded on the drop counter.
const (
	DropStale       = "stale"
	DropSuperseded  = "superseded"
	DropDictionary  = "dictionary"
	DropMismatch    = "mismatch"
	DropOverlap     = "overlap"
	DropOutOfBounds = "out_of_bounds"
	DropDocClosed   = "doc_closed"
	DropTransport   = "transport"
)

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use.
type Metrics struct {
	// AssistDuration tracks assistant request latency. Use with attribute:
	//   attribute.String("kind", ...)
	AssistDuration metric.Float64Histogram

	// AssistRequests counts assistant API calls. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("status", ...)
	AssistRequests metric.Int64Counter

	// ResponseDrops counts silently discarded responses by kind and reason.
	ResponseDrops metric.Int64Counter

	// CorrectionsResolved counts correction entries leaving the registry
	// through a user action or auto-apply. Use with attribute:
	//   attribute.String("action", ...)
	CorrectionsResolved metric.Int64Counter

	// DictionaryAdds counts "never correct" words added.
	DictionaryAdds metric.Int64Counter

	// PendingCorrections tracks the live correction entry count.
	PendingCorrections metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// typing-latency-sensitive assistant calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AssistDuration, err = m.Float64Histogram("marksense.assist.duration",
		metric.WithDescription("Latency of assistant requests by kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssistRequests, err = m.Int64Counter("marksense.assist.requests",
		metric.WithDescription("Total assistant requests by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ResponseDrops, err = m.Int64Counter("marksense.assist.drops",
		metric.WithDescription("Responses silently discarded, by kind and reason."),
	); err != nil {
		return nil, err
	}
	if met.CorrectionsResolved, err = m.Int64Counter("marksense.corrections.resolved",
		metric.WithDescription("Correction entries resolved, by action."),
	); err != nil {
		return nil, err
	}
	if met.DictionaryAdds, err = m.Int64Counter("marksense.dictionary.adds",
		metric.WithDescription("Words added to the user dictionary."),
	); err != nil {
		return nil, err
	}
	if met.PendingCorrections, err = m.Int64UpDownCounter("marksense.corrections.pending",
		metric.WithDescription("Number of pending correction entries."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// RecordRequest records one assistant round-trip with its latency.
func (m *Metrics) RecordRequest(ctx context.Context, kind, status string, seconds float64) {
	m.AssistRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
	m.AssistDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordDrop records one silently discarded response.
func (m *Metrics) RecordDrop(ctx context.Context, kind, reason string) {
	m.RecordDrops(ctx, kind, reason, 1)
}

// RecordDrops records n silent discards at once.
func (m *Metrics) RecordDrops(ctx context.Context, kind, reason string, n int64) {
	m.ResponseDrops.Add(ctx, n,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("reason", reason),
		),
	)
}

// RecordResolved records a correction leaving the registry via action
// ("accept", "pick", "revert", "dismiss", "never").
func (m *Metrics) RecordResolved(ctx context.Context, action string) {
	m.CorrectionsResolved.Add(ctx, 1,
		metric.WithAttributes(attribute.String("action", action)),
	)
}
