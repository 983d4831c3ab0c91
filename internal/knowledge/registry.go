package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
	"github.com/lorekeeperhq/lorekeeper/internal/observe"
)

// Persister loads and saves graph state. Implementations must make SaveGraph
// non-destructive: rows present in the store but absent from the export are
// left alone, so concurrent writers never orphan each other's entities.
type Persister interface {
	// LoadGraph returns the full persisted state for a campaign. A campaign
	// with no persisted nodes yields an empty Export, not an error.
	LoadGraph(ctx context.Context, campaignID string) (Export, error)

	// SaveGraph upserts every node by ID and every edge by
	// (source, target, type) in one transaction.
	SaveGraph(ctx context.Context, campaignID string, state Export) error
}

// LoadFrom clears the graph and replaces its state with the persisted state.
// Either the whole load applies or none of it does.
func (g *Graph) LoadFrom(ctx context.Context, p Persister) error {
	exp, err := p.LoadGraph(ctx, g.campaignID)
	if err != nil {
		return fmt.Errorf("knowledge: load campaign %s: %w", g.campaignID, err)
	}
	if err := g.ImportState(exp); err != nil {
		return err
	}
	return nil
}

// SaveTo persists the current in-memory state.
func (g *Graph) SaveTo(ctx context.Context, p Persister) error {
	if err := p.SaveGraph(ctx, g.campaignID, g.ExportState()); err != nil {
		return fmt.Errorf("knowledge: save campaign %s: %w", g.campaignID, err)
	}
	return nil
}

// Registry is the concurrent map of campaign ID to graph. Access to one
// campaign's graph is serialized; different campaigns progress in parallel.
// Graphs are loaded from the persister on first use.
type Registry struct {
	persister   Persister
	lockTimeout time.Duration
	graphOpts   []GraphOption
	log         *slog.Logger
	metrics     *observe.Metrics

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// registryEntry pairs a graph with its single-holder semaphore. The channel
// form allows acquisition with a timeout.
type registryEntry struct {
	sem    chan struct{}
	graph  *Graph
	loaded bool
}

// RegistryConfig configures a [Registry]. Zero values use the defaults noted
// per field.
type RegistryConfig struct {
	// Persister backs first-use loads and explicit saves. May be nil in
	// tests, in which case graphs start empty.
	Persister Persister

	// LockTimeout bounds how long a caller waits for a campaign's graph
	// before giving up with a conflict error. Default: 10s.
	LockTimeout time.Duration

	// GraphOptions are applied to every graph the registry creates.
	GraphOptions []GraphOption

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics defaults to observe.DefaultMetrics().
	Metrics *observe.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Registry{
		persister:   cfg.Persister,
		lockTimeout: cfg.LockTimeout,
		graphOpts:   cfg.GraphOptions,
		log:         cfg.Logger.With(slog.String("component", "knowledge.registry")),
		metrics:     cfg.Metrics,
		entries:     make(map[string]*registryEntry),
	}
}

// entry returns the registry entry for a campaign, creating it if needed.
func (r *Registry) entry(campaignID string) *registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[campaignID]
	if !ok {
		e = &registryEntry{
			sem:   make(chan struct{}, 1),
			graph: NewGraph(campaignID, r.graphOpts...),
		}
		r.entries[campaignID] = e
		r.metrics.ActiveGraphs.Add(context.Background(), 1)
	}
	return e
}

// WithGraph runs fn with exclusive access to the campaign's graph, loading
// it from the persister on first use. Waiting longer than the configured
// lock timeout fails with [lorerr.ErrConcurrencyConflict].
func (r *Registry) WithGraph(ctx context.Context, campaignID string, fn func(*Graph) error) error {
	e := r.entry(campaignID)

	timer := time.NewTimer(r.lockTimeout)
	defer timer.Stop()
	select {
	case e.sem <- struct{}{}:
	case <-timer.C:
		return fmt.Errorf("knowledge: campaign %s graph busy: %w", campaignID, lorerr.ErrConcurrencyConflict)
	case <-ctx.Done():
		return fmt.Errorf("knowledge: acquire campaign %s graph: %w", campaignID, ctx.Err())
	}
	defer func() { <-e.sem }()

	if !e.loaded {
		if r.persister != nil {
			if err := e.graph.LoadFrom(ctx, r.persister); err != nil {
				return err
			}
		}
		e.loaded = true
	}
	return fn(e.graph)
}

// WithGraphRollback is WithGraph plus automatic snapshot/restore: if fn
// returns an error, every in-memory mutation it applied is rolled back so
// the cached graph never diverges from the store after a failed unit of
// work.
func (r *Registry) WithGraphRollback(ctx context.Context, campaignID string, fn func(*Graph) error) error {
	return r.WithGraph(ctx, campaignID, func(g *Graph) error {
		snap := g.TakeSnapshot()
		if err := fn(g); err != nil {
			g.Restore(snap)
			return err
		}
		return nil
	})
}

// Evict drops a campaign's cached graph. The next access reloads from the
// persister. Used when a campaign is deleted.
func (r *Registry) Evict(campaignID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[campaignID]; ok {
		delete(r.entries, campaignID)
		r.metrics.ActiveGraphs.Add(context.Background(), -1)
	}
}

// Len returns the number of cached graphs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
