// Package observe provides application-wide observability primitives for the
// alphabet tutor: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. There is no package-level
// default instance; construct a [Metrics] with [NewMetrics] and inject it
// where needed.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all tutor metrics.
const meterName = "github.com/kidsafe/alphatutor"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TurnDuration tracks end-to-end tutoring turn processing latency.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// SafetyViolations counts moderated violations. Use with attribute:
	//   attribute.String("category", ...)
	SafetyViolations metric.Int64Counter

	// LetterProgressions counts curriculum advancements. Use with attribute:
	//   attribute.String("letter", ...)
	LetterProgressions metric.Int64Counter

	// SpecialCommands counts help/repeat/skip invocations. Use with attribute:
	//   attribute.String("command", ...)
	SpecialCommands metric.Int64Counter

	// CurriculumReloads counts lesson table reload attempts. Use with attribute:
	//   attribute.String("status", ...)
	CurriculumReloads metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// meter is kept for instruments registered after construction, such as
	// the active-sessions gauge.
	meter metric.Meter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for interactive turn latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	if met.TurnDuration, err = m.Float64Histogram("alphatutor.turn.duration",
		metric.WithDescription("End-to-end latency of one tutoring turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SafetyViolations, err = m.Int64Counter("alphatutor.safety.violations",
		metric.WithDescription("Total safety violations by category."),
	); err != nil {
		return nil, err
	}
	if met.LetterProgressions, err = m.Int64Counter("alphatutor.letter.progressions",
		metric.WithDescription("Total curriculum letter advancements by new letter."),
	); err != nil {
		return nil, err
	}
	if met.SpecialCommands, err = m.Int64Counter("alphatutor.special.commands",
		metric.WithDescription("Total special command invocations by command."),
	); err != nil {
		return nil, err
	}
	if met.CurriculumReloads, err = m.Int64Counter("alphatutor.curriculum.reloads",
		metric.WithDescription("Total lesson table reload attempts by status."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("alphatutor.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RegisterActiveSessions exposes the number of live tutoring sessions as an
// observable gauge. fn is read at collection time, so the gauge always
// matches the session store regardless of how sessions were created or
// removed (lazy creation, explicit clear, idle sweep).
func (m *Metrics) RegisterActiveSessions(fn func() int) error {
	gauge, err := m.meter.Int64ObservableGauge("alphatutor.active_sessions",
		metric.WithDescription("Number of live tutoring sessions."),
	)
	if err != nil {
		return err
	}
	_, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, int64(fn()))
		return nil
	}, gauge)
	return err
}

// RecordTurn records one completed tutoring turn.
func (m *Metrics) RecordTurn(ctx context.Context, elapsed time.Duration) {
	m.TurnDuration.Record(ctx, elapsed.Seconds())
}

// RecordViolation records a single safety violation occurrence.
func (m *Metrics) RecordViolation(ctx context.Context, category string) {
	m.SafetyViolations.Add(ctx, 1,
		metric.WithAttributes(Attr("category", category)),
	)
}

// RecordProgression records a curriculum advancement to letter.
func (m *Metrics) RecordProgression(ctx context.Context, letter string) {
	m.LetterProgressions.Add(ctx, 1,
		metric.WithAttributes(Attr("letter", letter)),
	)
}

// RecordCommand records a special command invocation.
func (m *Metrics) RecordCommand(ctx context.Context, command string) {
	m.SpecialCommands.Add(ctx, 1,
		metric.WithAttributes(Attr("command", command)),
	)
}

// RecordReload records a curriculum reload attempt with its outcome.
func (m *Metrics) RecordReload(ctx context.Context, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.CurriculumReloads.Add(ctx, 1,
		metric.WithAttributes(Attr("status", status)),
	)
}
