// Package httpapi exposes the Lorekeeper services over a RESTful JSON API.
//
// The package holds no game logic: handlers decode requests, call the
// service layer, and encode the result. Service errors carry lorerr
// sentinels which [writeError] maps to HTTP status codes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lorekeeperhq/lorekeeper/internal/dice"
	"github.com/lorekeeperhq/lorekeeper/internal/encounter"
	"github.com/lorekeeperhq/lorekeeper/internal/health"
	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/narrative"
	"github.com/lorekeeperhq/lorekeeper/internal/npc"
	"github.com/lorekeeperhq/lorekeeper/internal/observe"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
	"github.com/lorekeeperhq/lorekeeper/internal/world"
	"github.com/lorekeeperhq/lorekeeper/internal/worldmap"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// SemanticSearch ranks knowledge nodes for a campaign by embedding
// similarity to the query. Wired only when an embeddings provider is
// configured; when nil the search route only offers substring matching.
type SemanticSearch func(ctx context.Context, campaignID, query string, limit int) ([]knowledge.Node, error)

// Server routes HTTP requests to the Lorekeeper services.
type Server struct {
	world      *world.Service
	narrative  *narrative.Service
	npcs       *npc.Service
	encounters *encounter.Service
	maps       *worldmap.Service
	graphs     *knowledge.Registry
	store      store.Store
	roller     *dice.Roller

	semantic SemanticSearch
	health   *health.Handler
	metrics  *observe.Metrics
	log      *slog.Logger
	cors     []string
}

// Config wires a [Server]. World, Narrative, NPCs, Encounters, Maps,
// Graphs, Store, and Roller are required; the rest default sensibly.
type Config struct {
	World      *world.Service
	Narrative  *narrative.Service
	NPCs       *npc.Service
	Encounters *encounter.Service
	Maps       *worldmap.Service
	Graphs     *knowledge.Registry
	Store      store.Store
	Roller     *dice.Roller

	// Semantic enables embedding-backed knowledge search when non-nil.
	Semantic SemanticSearch

	// Health serves /healthz and /readyz. Nil disables the probes.
	Health *health.Handler

	Metrics *observe.Metrics
	Logger  *slog.Logger

	// CORSAllowedOrigins lists origins allowed to call the API from a
	// browser. Empty disables CORS headers entirely.
	CORSAllowedOrigins []string
}

// NewServer builds a Server from cfg.
func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	roller := cfg.Roller
	if roller == nil {
		roller = dice.NewDefault()
	}
	return &Server{
		world:      cfg.World,
		narrative:  cfg.Narrative,
		npcs:       cfg.NPCs,
		encounters: cfg.Encounters,
		maps:       cfg.Maps,
		graphs:     cfg.Graphs,
		store:      cfg.Store,
		roller:     roller,
		semantic:   cfg.Semantic,
		health:     cfg.Health,
		metrics:    metrics,
		log:        log.With("component", "httpapi"),
		cors:       cfg.CORSAllowedOrigins,
	}
}

// Handler returns the fully routed and instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.health != nil {
		s.health.Register(mux)
	}

	// Campaigns.
	mux.HandleFunc("POST /api/campaigns", s.handleCreateCampaign)
	mux.HandleFunc("GET /api/campaigns", s.handleListCampaigns)
	mux.HandleFunc("GET /api/campaigns/{cid}", s.handleGetCampaign)
	mux.HandleFunc("PUT /api/campaigns/{cid}", s.handleUpdateCampaign)
	mux.HandleFunc("DELETE /api/campaigns/{cid}", s.handleDeleteCampaign)
	mux.HandleFunc("GET /api/campaigns/{cid}/timeline", s.handleCampaignTimeline)

	// Sessions.
	mux.HandleFunc("POST /api/campaigns/{cid}/sessions", s.handleStartSession)
	mux.HandleFunc("GET /api/campaigns/{cid}/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{sid}", s.handleGetSession)
	mux.HandleFunc("PUT /api/sessions/{sid}", s.handleUpdateSession)
	mux.HandleFunc("POST /api/sessions/{sid}/end", s.handleEndSession)

	// Story.
	mux.HandleFunc("POST /api/sessions/{sid}/action", s.handleAction)
	mux.HandleFunc("POST /api/sessions/{sid}/action/stream", s.handleActionStream)
	mux.HandleFunc("POST /api/sessions/{sid}/opening", s.handleOpening)
	mux.HandleFunc("POST /api/sessions/{sid}/choice", s.handleChoice)
	mux.HandleFunc("GET /api/sessions/{sid}/story", s.handleStory)
	mux.HandleFunc("POST /api/sessions/{sid}/recap", s.handleRecap)

	// Characters and NPCs.
	mux.HandleFunc("POST /api/campaigns/{cid}/characters", s.handleCreateCharacter)
	mux.HandleFunc("GET /api/campaigns/{cid}/characters", s.handleListCharacters)
	mux.HandleFunc("POST /api/campaigns/{cid}/npcs", s.handleGenerateNPC)
	mux.HandleFunc("GET /api/characters/{chid}", s.handleGetCharacter)
	mux.HandleFunc("PUT /api/characters/{chid}", s.handleUpdateCharacter)
	mux.HandleFunc("DELETE /api/characters/{chid}", s.handleDeleteCharacter)
	mux.HandleFunc("POST /api/characters/{chid}/dialogue", s.handleDialogue)
	mux.HandleFunc("POST /api/characters/{chid}/disposition", s.handleUpdateDisposition)
	mux.HandleFunc("GET /api/characters/{chid}/player-view", s.handlePlayerView)
	mux.HandleFunc("GET /api/characters/{chid}/memory", s.handleNPCMemory)
	mux.HandleFunc("GET /api/campaigns/{cid}/party", s.handlePartyStatus)
	mux.HandleFunc("POST /api/campaigns/{cid}/party/move", s.handleMoveParty)
	mux.HandleFunc("POST /api/campaigns/{cid}/party/xp", s.handleAwardXP)

	// Encounters.
	mux.HandleFunc("POST /api/sessions/{sid}/encounters", s.handleCreateEncounter)
	mux.HandleFunc("GET /api/sessions/{sid}/encounters", s.handleListEncounters)
	mux.HandleFunc("GET /api/encounters/{eid}", s.handleGetEncounter)
	mux.HandleFunc("POST /api/encounters/{eid}/action", s.handleEncounterAction)
	mux.HandleFunc("GET /api/encounters/{eid}/balance", s.handleEncounterBalance)
	mux.HandleFunc("POST /api/encounters/{eid}/resolve", s.handleResolveEncounter)
	mux.HandleFunc("GET /api/encounters/{eid}/loot", s.handleEncounterLoot)

	// Locations and map.
	mux.HandleFunc("GET /api/campaigns/{cid}/locations", s.handleListLocations)
	mux.HandleFunc("POST /api/campaigns/{cid}/locations", s.handleCreateLocation)
	mux.HandleFunc("POST /api/campaigns/{cid}/locations/connect", s.handleConnectLocations)
	mux.HandleFunc("GET /api/locations/{lid}", s.handleGetLocation)
	mux.HandleFunc("GET /api/locations/{lid}/state", s.handleLocationState)
	mux.HandleFunc("POST /api/locations/{lid}/discover", s.handleDiscoverLocation)
	mux.HandleFunc("POST /api/locations/{lid}/scene", s.handleScene)
	mux.HandleFunc("GET /api/campaigns/{cid}/map", s.handleMap)
	mux.HandleFunc("POST /api/campaigns/{cid}/dungeons", s.handleGenerateDungeon)
	mux.HandleFunc("POST /api/campaigns/{cid}/regions", s.handleGenerateRegion)

	// Knowledge graph.
	mux.HandleFunc("GET /api/campaigns/{cid}/knowledge", s.handleKnowledgeDump)
	mux.HandleFunc("GET /api/campaigns/{cid}/knowledge/search", s.handleKnowledgeSearch)
	mux.HandleFunc("GET /api/campaigns/{cid}/knowledge/timeline", s.handleKnowledgeTimeline)
	mux.HandleFunc("POST /api/campaigns/{cid}/knowledge/context", s.handleKnowledgeContext)
	mux.HandleFunc("POST /api/campaigns/{cid}/knowledge/nodes", s.handleCreateNode)
	mux.HandleFunc("POST /api/campaigns/{cid}/knowledge/edges", s.handleCreateEdge)
	mux.HandleFunc("GET /api/campaigns/{cid}/knowledge/{nid}", s.handleKnowledgeNode)

	// Dice.
	mux.HandleFunc("POST /api/dice/roll", s.handleDiceRoll)
	mux.HandleFunc("POST /api/dice/damage", s.handleDiceDamage)
	mux.HandleFunc("POST /api/dice/skill-check", s.handleSkillCheck)
	mux.HandleFunc("POST /api/dice/saving-throw", s.handleSavingThrow)
	mux.HandleFunc("POST /api/dice/attack", s.handleAttack)
	mux.HandleFunc("POST /api/dice/initiative", s.handleInitiative)
	mux.HandleFunc("POST /api/dice/stats", s.handleDiceStats)

	var h http.Handler = mux
	h = s.corsMiddleware(h)
	h = observe.Middleware(s.metrics)(h)
	return h
}

// handleInfo serves the root service descriptor.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":        "lorekeeper",
		"version":     Version,
		"description": "AI dungeon master backend",
	})
}
