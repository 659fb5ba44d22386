// Package observe provides observability primitives for Argus: OpenTelemetry
// metrics with a Prometheus exporter bridge so the standard /metrics endpoint
// keeps working.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Argus metrics.
const meterName = "github.com/argus-ar/argus"

// Registration outcome attribute values.
const (
	OutcomeCommitted = "committed"
	OutcomeAborted   = "aborted"
	OutcomeAbandoned = "abandoned"
)

// Transcription status attribute values.
const (
	StatusOK       = "ok"
	StatusNoSpeech = "no_speech"
	StatusError    = "error"
)

// Sync direction attribute values.
const (
	DirectionPull = "pull"
	DirectionPush = "push"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// WakeWordDetections counts accepted wake-word detections.
	WakeWordDetections metric.Int64Counter

	// Registrations counts registration flows by outcome. Use with
	// attribute.String("outcome", ...).
	Registrations metric.Int64Counter

	// TranscriptionRequests counts transcription calls by status
	// ("ok", "no_speech", "error").
	TranscriptionRequests metric.Int64Counter

	// SyncFailures counts failed sync checks and uploads by direction
	// ("pull", "push").
	SyncFailures metric.Int64Counter

	// ListenWindowDuration tracks how long each listen window ran before
	// returning, in seconds.
	ListenWindowDuration metric.Float64Histogram

	// UnknownFaces tracks the number of unknown faces in the current frame.
	UnknownFaces metric.Int64Gauge
}

// listenBuckets covers listen windows from a fraction of a second up to the
// configured maximum and a little beyond.
var listenBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 7.5, 10, 15}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.WakeWordDetections, err = m.Int64Counter("argus.wakeword.detections",
		metric.WithDescription("Total accepted wake-word detections."),
	); err != nil {
		return nil, err
	}
	if met.Registrations, err = m.Int64Counter("argus.registrations",
		metric.WithDescription("Total registration flows by outcome."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionRequests, err = m.Int64Counter("argus.transcription.requests",
		metric.WithDescription("Total transcription requests by status."),
	); err != nil {
		return nil, err
	}
	if met.SyncFailures, err = m.Int64Counter("argus.sync.failures",
		metric.WithDescription("Total failed sync operations by direction."),
	); err != nil {
		return nil, err
	}
	if met.ListenWindowDuration, err = m.Float64Histogram("argus.listen_window.duration",
		metric.WithDescription("Duration of wake-word listen windows."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(listenBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UnknownFaces, err = m.Int64Gauge("argus.unknown_faces",
		metric.WithDescription("Unknown faces in the most recent frame."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordDetection increments the wake-word detection counter.
func (m *Metrics) RecordDetection(ctx context.Context) {
	m.WakeWordDetections.Add(ctx, 1)
}

// RecordRegistration increments the registration counter for an outcome.
func (m *Metrics) RecordRegistration(ctx context.Context, outcome string) {
	m.Registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordTranscription increments the transcription request counter.
func (m *Metrics) RecordTranscription(ctx context.Context, status string) {
	m.TranscriptionRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordSyncFailure increments the sync failure counter for a direction.
func (m *Metrics) RecordSyncFailure(ctx context.Context, direction string) {
	m.SyncFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

// RecordListenWindow records the duration of one completed listen window.
func (m *Metrics) RecordListenWindow(ctx context.Context, d time.Duration) {
	m.ListenWindowDuration.Record(ctx, d.Seconds())
}

// RecordUnknownFaces records the unknown face count of the current frame.
func (m *Metrics) RecordUnknownFaces(ctx context.Context, n int) {
	m.UnknownFaces.Record(ctx, int64(n))
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from the global meter provider. Panics if instrument creation
// fails, which does not happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
