// Package app wires all Lorekeeper subsystems into a running HTTP server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP and watches the config file until the context
// is cancelled, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithLevelVar). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lorekeeperhq/lorekeeper/internal/config"
	"github.com/lorekeeperhq/lorekeeper/internal/dice"
	"github.com/lorekeeperhq/lorekeeper/internal/encounter"
	"github.com/lorekeeperhq/lorekeeper/internal/generator"
	"github.com/lorekeeperhq/lorekeeper/internal/health"
	"github.com/lorekeeperhq/lorekeeper/internal/httpapi"
	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/narrative"
	"github.com/lorekeeperhq/lorekeeper/internal/npc"
	"github.com/lorekeeperhq/lorekeeper/internal/prompt"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
	"github.com/lorekeeperhq/lorekeeper/internal/store/postgres"
	"github.com/lorekeeperhq/lorekeeper/internal/world"
	"github.com/lorekeeperhq/lorekeeper/internal/worldmap"
	"github.com/lorekeeperhq/lorekeeper/pkg/provider/embeddings"
	"github.com/lorekeeperhq/lorekeeper/pkg/provider/llm"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM        llm.Provider
	Embeddings embeddings.Provider
}

// App owns all subsystem lifetimes behind the Lorekeeper HTTP server.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	store      store.Store
	pg         *postgres.Store
	graphs     *knowledge.Registry
	catalog    *prompt.Catalog
	gen        *generator.Generator
	world      *world.Service
	npcs       *npc.Service
	encounters *encounter.Service
	maps       *worldmap.Service
	narrative  *narrative.Service
	api        *httpapi.Server
	server     *http.Server
	watcher    *config.Watcher

	// level, when set, is adjusted on config hot-reload.
	level *slog.LevelVar

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a relational store instead of connecting to PostgreSQL.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithLevelVar hands New the process log-level variable so config
// hot-reloads can adjust verbosity.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Relational store ──────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	if providers.Embeddings != nil && a.pg != nil {
		emb := providers.Embeddings
		a.pg.EnableSemanticIndexing(func(ctx context.Context, texts []string) ([][]float32, error) {
			return emb.EmbedBatch(ctx, texts)
		})
	}

	// ── 2. Knowledge graph registry ──────────────────────────────────────
	a.graphs = knowledge.NewRegistry(knowledge.RegistryConfig{
		Persister:    a.store,
		LockTimeout:  cfg.Knowledge.LockTimeout,
		GraphOptions: a.graphOptions(),
	})

	// ── 3. Prompt catalog ────────────────────────────────────────────────
	if err := a.initCatalog(); err != nil {
		return nil, fmt.Errorf("app: init catalog: %w", err)
	}

	// ── 4. Generator ─────────────────────────────────────────────────────
	if providers.LLM == nil {
		return nil, fmt.Errorf("app: an LLM provider is required; configure providers.llm")
	}
	a.gen = generator.New(providers.LLM, generator.Config{
		ProviderName: cfg.Providers.LLM.Name,
		Temperature:  cfg.Generator.Temperature,
		MaxTokens:    cfg.Generator.MaxTokens,
		MaxRetries:   cfg.Generator.MaxRetries,
		RetryBackoff: cfg.Generator.RetryBackoff,
	})

	// ── 5. World-state services ──────────────────────────────────────────
	a.initServices()

	// ── 6. HTTP surface ──────────────────────────────────────────────────
	a.api = httpapi.NewServer(httpapi.Config{
		World:              a.world,
		Narrative:          a.narrative,
		NPCs:               a.npcs,
		Encounters:         a.encounters,
		Maps:               a.maps,
		Graphs:             a.graphs,
		Store:              a.store,
		Roller:             dice.NewDefault(),
		Semantic:           a.semanticSearch(),
		Health:             a.healthHandler(),
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStore connects the PostgreSQL store unless one was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Database.PostgresDSN
	if dsn == "" {
		return fmt.Errorf("database.postgres_dsn is required when a store is not injected")
	}

	dims := a.cfg.Database.EmbeddingDimensions
	if dims == 0 {
		dims = 1536
	}

	pg, err := postgres.NewStore(ctx, dsn, dims)
	if err != nil {
		return err
	}
	a.pg = pg
	a.store = pg
	a.closers = append(a.closers, func() error {
		pg.Close()
		return nil
	})
	return nil
}

// initCatalog builds the prompt catalog and applies the configured overlay.
func (a *App) initCatalog() error {
	a.catalog = prompt.NewCatalog()
	if p := a.cfg.Prompts.OverlayPath; p != "" {
		if err := a.catalog.LoadOverlay(p); err != nil {
			return fmt.Errorf("load prompt overlay %q: %w", p, err)
		}
		slog.Info("loaded prompt overlay", "path", p)
	}
	return nil
}

// graphOptions translates the knowledge config into graph construction
// options applied to every campaign graph.
func (a *App) graphOptions() []knowledge.GraphOption {
	var opts []knowledge.GraphOption
	if a.cfg.Knowledge.PhoneticSearch {
		opts = append(opts, knowledge.WithPhoneticSearch())
	}
	return opts
}

// initServices builds the five world-state services over the shared
// store, generator, catalog, and graph registry.
func (a *App) initServices() {
	a.world = world.NewService(world.Config{
		Store:  a.store,
		Graphs: a.graphs,
	})
	a.npcs = npc.NewService(npc.Config{
		Store:     a.store,
		Generator: a.gen,
		Catalog:   a.catalog,
		Graphs:    a.graphs,
	})
	a.encounters = encounter.NewService(encounter.Config{
		Store:     a.store,
		Generator: a.gen,
		Catalog:   a.catalog,
		Graphs:    a.graphs,
	})
	a.maps = worldmap.NewService(worldmap.Config{
		Store:     a.store,
		Generator: a.gen,
		Catalog:   a.catalog,
		Graphs:    a.graphs,
	})
	a.narrative = narrative.NewService(narrative.Config{
		Store:     a.store,
		Generator: a.gen,
		Catalog:   a.catalog,
		Graphs:    a.graphs,
		World:     a.world,
	})
}

// healthHandler assembles the readiness checkers.
func (a *App) healthHandler() *health.Handler {
	checkers := []health.Checker{
		{
			Name: "llm_provider",
			Check: func(context.Context) error {
				if a.providers.LLM == nil {
					return errors.New("no LLM provider configured")
				}
				return nil
			},
		},
	}
	if a.pg != nil {
		checkers = append(checkers, health.Checker{
			Name:  "database",
			Check: a.pg.Ping,
		})
	}
	return health.New(checkers...)
}

// semanticSearch returns the embedding-backed knowledge search when both an
// embeddings provider and the PostgreSQL store are available.
func (a *App) semanticSearch() httpapi.SemanticSearch {
	if a.providers.Embeddings == nil || a.pg == nil {
		return nil
	}
	emb := a.providers.Embeddings
	pg := a.pg
	return func(ctx context.Context, campaignID, query string, limit int) ([]knowledge.Node, error) {
		vec, err := emb.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("app: embed query: %w", err)
		}
		matches, err := pg.SemanticSearchNodes(ctx, campaignID, vec, limit)
		if err != nil {
			return nil, fmt.Errorf("app: semantic search: %w", err)
		}
		nodes := make([]knowledge.Node, 0, len(matches))
		for _, m := range matches {
			nodes = append(nodes, m.Node)
		}
		return nodes, nil
	}
}

// Handler exposes the assembled HTTP handler. Useful for tests that drive
// the API without a listener.
func (a *App) Handler() http.Handler {
	return a.api.Handler()
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP and blocks until ctx is cancelled or the listener fails.
// A config watcher applies hot-reloadable changes (log level, prompt
// overlay) while the server runs.
func (a *App) Run(ctx context.Context, configPath string) error {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if configPath != "" {
		if err := a.startWatcher(configPath); err != nil {
			slog.Warn("config watcher disabled", "err", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("serving", "addr", addr, "tls", a.cfg.Server.TLS != nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	}
}

// startWatcher polls the config file and applies hot-reloadable changes.
func (a *App) startWatcher(path string) error {
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Any() {
			return
		}
		if d.LogLevelChanged && a.level != nil {
			a.level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.PromptOverlayChanged {
			a.reloadOverlay(d.NewOverlayPath)
		}
		if d.GeneratorChanged {
			slog.Warn("generator tuning changed in config; restart to apply",
				"temperature", d.NewGenerator.Temperature,
				"max_tokens", d.NewGenerator.MaxTokens)
		}
	})
	if err != nil {
		return err
	}
	a.watcher = w
	a.closers = append(a.closers, func() error {
		w.Stop()
		return nil
	})
	return nil
}

// reloadOverlay swaps prompt templates live. An empty path restores the
// built-in templates; a bad overlay leaves the current set untouched.
func (a *App) reloadOverlay(path string) {
	fresh := prompt.NewCatalog()
	if path != "" {
		if err := fresh.LoadOverlay(path); err != nil {
			slog.Error("prompt overlay reload failed; keeping current templates", "path", path, "err", err)
			return
		}
	}
	if err := a.catalog.ReplaceFrom(fresh); err != nil {
		slog.Error("prompt overlay swap failed", "err", err)
		return
	}
	slog.Info("prompt overlay reloaded", "path", path)
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops the HTTP server and tears down all subsystems in
// reverse-init order. It respects the context deadline: if ctx expires
// before all closers finish, remaining closers are skipped.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				slog.Warn("http shutdown error", "err", err)
			}
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// slogLevel maps a config log level to its slog value.
func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
