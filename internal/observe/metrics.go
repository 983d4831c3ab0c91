// Package observe provides application-wide observability primitives for
// Lorekeeper: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Lorekeeper metrics.
const meterName = "github.com/lorekeeperhq/lorekeeper"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// GeneratorDuration tracks LLM generation latency. Use with attribute:
	//   attribute.String("kind", ...) — "generate", "structured", "stream"
	GeneratorDuration metric.Float64Histogram

	// GraphRenderDuration tracks knowledge-graph subgraph rendering latency.
	GraphRenderDuration metric.Float64Histogram

	// StoreDuration tracks relational store round-trip latency. Use with
	// attribute: attribute.String("op", ...)
	StoreDuration metric.Float64Histogram

	// --- Counters ---

	// GeneratorRequests counts generator calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	GeneratorRequests metric.Int64Counter

	// GeneratorRetries counts transient-error retries inside GenerateWithRetry.
	GeneratorRetries metric.Int64Counter

	// ParseFallbacks counts structured-generation JSON recoveries by tier:
	//   attribute.String("tier", ...) — "fenced", "braces", "sentinel"
	ParseFallbacks metric.Int64Counter

	// DiceRolls counts dice resolutions. Use with attribute:
	//   attribute.String("kind", ...) — "roll", "check", "attack", "damage", "stats"
	DiceRolls metric.Int64Counter

	// StoryBeats counts narrative beats produced per campaign.
	StoryBeats metric.Int64Counter

	// NPCDialogues counts NPC dialogue exchanges by NPC ID.
	NPCDialogues metric.Int64Counter

	// EncounterActions counts encounter turn actions by action type.
	EncounterActions metric.Int64Counter

	// --- Error counters ---

	// GeneratorErrors counts generator failures. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	GeneratorErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveGraphs tracks the number of campaign graphs resident in memory.
	ActiveGraphs metric.Int64UpDownCounter

	// ActiveEncounters tracks encounters currently in the active state.
	ActiveEncounters metric.Int64UpDownCounter

	// ActiveSessions tracks game sessions currently in the active state.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The upper
// buckets are generous because a single story beat can spend several seconds
// waiting on the model.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.GeneratorDuration, err = m.Float64Histogram("lorekeeper.generator.duration",
		metric.WithDescription("Latency of LLM generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GraphRenderDuration, err = m.Float64Histogram("lorekeeper.graph.render.duration",
		metric.WithDescription("Latency of knowledge-graph subgraph rendering."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StoreDuration, err = m.Float64Histogram("lorekeeper.store.duration",
		metric.WithDescription("Latency of relational store operations."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.GeneratorRequests, err = m.Int64Counter("lorekeeper.generator.requests",
		metric.WithDescription("Total generator requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.GeneratorRetries, err = m.Int64Counter("lorekeeper.generator.retries",
		metric.WithDescription("Total transient-error retries by provider."),
	); err != nil {
		return nil, err
	}
	if met.ParseFallbacks, err = m.Int64Counter("lorekeeper.generator.parse_fallbacks",
		metric.WithDescription("Total structured-output JSON recoveries by tier."),
	); err != nil {
		return nil, err
	}
	if met.DiceRolls, err = m.Int64Counter("lorekeeper.dice.rolls",
		metric.WithDescription("Total dice resolutions by kind."),
	); err != nil {
		return nil, err
	}
	if met.StoryBeats, err = m.Int64Counter("lorekeeper.story.beats",
		metric.WithDescription("Total narrative beats by campaign ID."),
	); err != nil {
		return nil, err
	}
	if met.NPCDialogues, err = m.Int64Counter("lorekeeper.npc.dialogues",
		metric.WithDescription("Total NPC dialogue exchanges by NPC ID."),
	); err != nil {
		return nil, err
	}
	if met.EncounterActions, err = m.Int64Counter("lorekeeper.encounter.actions",
		metric.WithDescription("Total encounter actions by action type."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.GeneratorErrors, err = m.Int64Counter("lorekeeper.generator.errors",
		metric.WithDescription("Total generator errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveGraphs, err = m.Int64UpDownCounter("lorekeeper.active_graphs",
		metric.WithDescription("Number of campaign knowledge graphs resident in memory."),
	); err != nil {
		return nil, err
	}
	if met.ActiveEncounters, err = m.Int64UpDownCounter("lorekeeper.active_encounters",
		metric.WithDescription("Number of encounters currently active."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("lorekeeper.active_sessions",
		metric.WithDescription("Number of game sessions currently active."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("lorekeeper.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGeneratorRequest records a generator request counter increment with
// the standard attribute set.
func (m *Metrics) RecordGeneratorRequest(ctx context.Context, provider, kind, status string) {
	m.GeneratorRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordGeneratorError records a generator error counter increment.
func (m *Metrics) RecordGeneratorError(ctx context.Context, provider, kind string) {
	m.GeneratorErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordParseFallback records which extraction tier rescued a structured
// generation.
func (m *Metrics) RecordParseFallback(ctx context.Context, tier string) {
	m.ParseFallbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tier", tier)),
	)
}

// RecordDiceRoll records a dice resolution counter increment.
func (m *Metrics) RecordDiceRoll(ctx context.Context, kind string) {
	m.DiceRolls.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordStoryBeat records a narrative beat counter increment.
func (m *Metrics) RecordStoryBeat(ctx context.Context, campaignID string) {
	m.StoryBeats.Add(ctx, 1,
		metric.WithAttributes(attribute.String("campaign_id", campaignID)),
	)
}

// RecordNPCDialogue records an NPC dialogue counter increment.
func (m *Metrics) RecordNPCDialogue(ctx context.Context, npcID string) {
	m.NPCDialogues.Add(ctx, 1,
		metric.WithAttributes(attribute.String("npc_id", npcID)),
	)
}

// RecordEncounterAction records an encounter action counter increment.
func (m *Metrics) RecordEncounterAction(ctx context.Context, actionType string) {
	m.EncounterActions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("action_type", actionType)),
	)
}
