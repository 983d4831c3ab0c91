// Package npc manages non-player characters: LLM-backed generation and
// dialogue, disposition tracking, and the player-facing view that never
// leaks a character's secret or motivation.
package npc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeeperhq/lorekeeper/internal/generator"
	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
	"github.com/lorekeeperhq/lorekeeper/internal/observe"
	"github.com/lorekeeperhq/lorekeeper/internal/prompt"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// dialogueTemperature is deliberately higher than the narrative default so
// NPC voices stay lively.
const dialogueTemperature = 0.9

// memoryLimit caps how many remembered interactions an NPC keeps.
const memoryLimit = 50

// Service implements NPC operations on top of the store, the generator, and
// the campaign knowledge graphs.
type Service struct {
	store   store.Store
	gen     *generator.Generator
	catalog *prompt.Catalog
	graphs  *knowledge.Registry
	log     *slog.Logger
	metrics *observe.Metrics
	now     func() time.Time
	newID   func() string
}

// Config carries the Service dependencies. Store, Generator, Catalog, and
// Graphs are required.
type Config struct {
	Store     store.Store
	Generator *generator.Generator
	Catalog   *prompt.Catalog
	Graphs    *knowledge.Registry
	Logger    *slog.Logger
	Metrics   *observe.Metrics

	// Clock and IDs are overridable for tests.
	Clock func() time.Time
	IDs   func() string
}

// NewService builds an NPC service.
func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	ids := cfg.IDs
	if ids == nil {
		ids = uuid.NewString
	}
	return &Service{
		store:   cfg.Store,
		gen:     cfg.Generator,
		catalog: cfg.Catalog,
		graphs:  cfg.Graphs,
		log:     log.With("component", "npc"),
		metrics: m,
		now:     now,
		newID:   ids,
	}
}

// Demeanor buckets a disposition value into the adjective shown to players.
func Demeanor(disposition int) string {
	switch {
	case disposition >= 50:
		return "friendly"
	case disposition >= 20:
		return "warm"
	case disposition >= -20:
		return "neutral"
	case disposition >= -50:
		return "cold"
	default:
		return "hostile"
	}
}

// Get returns the NPC with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*store.Character, error) {
	c, err := s.store.GetCharacter(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("npc: get: %w", err)
	}
	if c == nil || c.Type != store.CharacterNPC {
		return nil, fmt.Errorf("npc: get: npc %q: %w", id, lorerr.ErrNotFound)
	}
	return c, nil
}

// List returns the campaign's NPCs.
func (s *Service) List(ctx context.Context, campaignID string) ([]*store.Character, error) {
	out, err := s.store.ListCharacters(ctx, campaignID, store.CharacterFilter{Type: store.CharacterNPC})
	if err != nil {
		return nil, fmt.Errorf("npc: list: %w", err)
	}
	return out, nil
}

// GenerateInput parameterizes NPC generation.
type GenerateInput struct {
	Role             string
	LocationID       string
	PersonalityHints []string
}

// Generate asks the generator for a new NPC, persists it, and registers it
// in the campaign's knowledge graph. The generated disposition is clamped to
// [-50, 50]; a degraded generator response still yields a usable NPC.
func (s *Service) Generate(ctx context.Context, campaignID string, in GenerateInput) (*store.Character, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("npc: generate: %w", err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("npc: generate: campaign %q: %w", campaignID, lorerr.ErrNotFound)
	}

	locationName := "unspecified"
	var location *store.Location
	if in.LocationID != "" {
		location, err = s.store.GetLocation(ctx, in.LocationID)
		if err != nil {
			return nil, fmt.Errorf("npc: generate: %w", err)
		}
		if location == nil {
			return nil, fmt.Errorf("npc: generate: location %q: %w", in.LocationID, lorerr.ErrNotFound)
		}
		locationName = location.Name
	}

	kctx := s.knowledgeContext(ctx, campaignID, nil)

	rendered, err := s.catalog.Render(prompt.TplNPCGeneration, map[string]string{
		"genre":             string(campaign.Genre),
		"tone":              string(campaign.Tone),
		"knowledge_context": kctx,
		"role":              in.Role,
		"location":          locationName,
		"personality_hints": strings.Join(in.PersonalityHints, ", "),
	})
	if err != nil {
		return nil, fmt.Errorf("npc: generate: %w", err)
	}

	data, err := s.gen.GenerateStructuredWithRetry(ctx, rendered.System, rendered.User)
	if err != nil {
		return nil, fmt.Errorf("npc: generate: %w", err)
	}

	name := generator.Str(data, "name")
	if name == "" {
		name = "Unnamed Stranger"
	}

	disposition := generator.Num(data, "initial_disposition")
	if disposition < -50 {
		disposition = -50
	}
	if disposition > 50 {
		disposition = 50
	}

	now := s.now().UTC()
	npc := &store.Character{
		ID:                s.newID(),
		CampaignID:        campaignID,
		Name:              name,
		Type:              store.CharacterNPC,
		Race:              generator.Str(data, "race"),
		Occupation:        generator.Str(data, "occupation"),
		Level:             1,
		HPCurrent:         10,
		HPMax:             10,
		ArmorClass:        10,
		Abilities:         store.Abilities{Strength: 10, Dexterity: 10, Constitution: 10, Intelligence: 10, Wisdom: 10, Charisma: 10},
		Appearance:        generator.Str(data, "appearance"),
		Backstory:         generator.Str(data, "backstory"),
		PersonalityTraits: generator.StrSlice(data, "personality_traits"),
		Motivation:        generator.Str(data, "motivation"),
		Secret:            generator.Str(data, "secret"),
		SpeechPattern:     store.SpeechPattern(generator.Str(data, "speech_pattern")),
		Disposition:       store.ClampDisposition(disposition),
		IsAlive:           true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if location != nil {
		locID := location.ID
		npc.CurrentLocationID = &locID
	}

	if err := s.store.CreateCharacter(ctx, npc); err != nil {
		return nil, fmt.Errorf("npc: generate: %w", err)
	}

	s.registerInGraph(ctx, npc, location)

	s.log.InfoContext(ctx, "generated npc",
		"campaign_id", campaignID, "npc_id", npc.ID, "name", npc.Name, "role", in.Role)
	return npc, nil
}

// registerInGraph adds the NPC to the campaign's knowledge graph with a
// located_in edge when a location is known. Graph failures are logged, not
// fatal: the NPC record is already persisted.
func (s *Service) registerInGraph(ctx context.Context, npc *store.Character, location *store.Location) {
	err := s.graphs.WithGraph(ctx, npc.CampaignID, func(g *knowledge.Graph) error {
		if _, err := g.AddEntity(knowledge.EntityInput{
			ID:          npc.ID,
			Type:        knowledge.NodeCharacter,
			Name:        npc.Name,
			Description: npc.Occupation,
			Importance:  5,
		}); err != nil {
			return err
		}
		if location != nil {
			if _, ok := g.Entity(location.ID); !ok {
				if _, err := g.AddEntity(knowledge.EntityInput{
					ID:          location.ID,
					Type:        knowledge.NodeLocation,
					Name:        location.Name,
					Description: location.Description,
				}); err != nil {
					return err
				}
			}
			if _, err := g.AddRelationship(npc.ID, location.ID, knowledge.EdgeLocatedIn, nil); err != nil {
				return err
			}
		}
		return g.SaveTo(ctx, s.store)
	})
	if err != nil {
		s.log.WarnContext(ctx, "npc graph registration failed", "npc_id", npc.ID, "error", err)
	}
}

// DialogueInput is one player utterance aimed at an NPC.
type DialogueInput struct {
	Message string
	Context string
}

// DialogueResult is the NPC's full response. InternalThoughts is DM-only;
// [PlayerView] strips it.
type DialogueResult struct {
	NPCID             string `json:"npc_id"`
	NPCName           string `json:"npc_name"`
	Dialogue          string `json:"dialogue"`
	Mood              string `json:"mood"`
	DispositionChange int    `json:"disposition_change"`
	Disposition       int    `json:"disposition"`
	InternalThoughts  string `json:"internal_thoughts,omitempty"`
}

// Dialogue runs one exchange with the NPC: the response is generated in
// character, the disposition delta (clamped to [-20, 20]) is applied, and
// the interaction is appended to the NPC's memory.
func (s *Service) Dialogue(ctx context.Context, npcID string, in DialogueInput) (*DialogueResult, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, fmt.Errorf("npc: dialogue: empty message: %w", lorerr.ErrInvalidInput)
	}

	npc, err := s.store.GetCharacter(ctx, npcID)
	if err != nil {
		return nil, fmt.Errorf("npc: dialogue: %w", err)
	}
	if npc == nil {
		return nil, fmt.Errorf("npc: dialogue: npc %q: %w", npcID, lorerr.ErrNotFound)
	}
	if npc.Type != store.CharacterNPC {
		return nil, fmt.Errorf("npc: dialogue: character %q is not an npc: %w", npcID, lorerr.ErrStateViolation)
	}

	campaign, err := s.store.GetCampaign(ctx, npc.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("npc: dialogue: %w", err)
	}
	genre := store.GenreFantasy
	if campaign != nil {
		genre = campaign.Genre
	}

	memory := "No prior interactions."
	if len(npc.NPCMemory) > 0 {
		memory = strings.Join(npc.NPCMemory, "\n")
	}

	kctx := s.knowledgeContext(ctx, npc.CampaignID, []string{npc.ID})

	situation := in.Context
	if situation == "" {
		situation = "The party approaches for conversation."
	}

	rendered, err := s.catalog.Render(prompt.TplNPCDialogue, map[string]string{
		"npc_name":           npc.Name,
		"genre":              string(genre),
		"personality_traits": strings.Join(npc.PersonalityTraits, ", "),
		"motivation":         npc.Motivation,
		"secret":             npc.Secret,
		"speech_pattern":     string(npc.SpeechPattern),
		"disposition":        fmt.Sprintf("%d", npc.Disposition),
		"npc_memory":         memory,
		"knowledge_context":  kctx,
		"current_situation":  situation,
		"player_message":     in.Message,
		"context":            "",
	})
	if err != nil {
		return nil, fmt.Errorf("npc: dialogue: %w", err)
	}

	data, err := s.gen.GenerateStructuredWithRetry(ctx, rendered.System, rendered.User,
		generator.WithTemperature(dialogueTemperature))
	if err != nil {
		return nil, fmt.Errorf("npc: dialogue: %w", err)
	}

	dialogue := generator.Str(data, "dialogue")
	if dialogue == "" {
		dialogue = generator.Str(data, "narrative")
	}
	mood := generator.Str(data, "mood")
	if mood == "" {
		mood = "neutral"
	}

	change := generator.Num(data, "disposition_change")
	if change < -20 {
		change = -20
	}
	if change > 20 {
		change = 20
	}

	npc.Disposition = store.ClampDisposition(npc.Disposition + change)
	npc.NPCMemory = appendMemory(npc.NPCMemory, in.Message, mood)
	npc.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateCharacter(ctx, npc); err != nil {
		return nil, fmt.Errorf("npc: dialogue: %w", err)
	}

	s.metrics.RecordNPCDialogue(ctx, npc.ID)
	s.log.InfoContext(ctx, "npc dialogue",
		"npc_id", npc.ID, "mood", mood, "disposition_change", change, "disposition", npc.Disposition)

	return &DialogueResult{
		NPCID:             npc.ID,
		NPCName:           npc.Name,
		Dialogue:          dialogue,
		Mood:              mood,
		DispositionChange: change,
		Disposition:       npc.Disposition,
		InternalThoughts:  generator.Str(data, "internal_thoughts"),
	}, nil
}

// appendMemory records one interaction in the NPC's memory, trimming the
// player message to 100 characters and dropping the oldest entries past the
// cap.
func appendMemory(memory []string, playerMessage, mood string) []string {
	msg := playerMessage
	if len(msg) > 100 {
		msg = msg[:100]
	}
	memory = append(memory, fmt.Sprintf("Player said: '%s' - Responded with %s mood", msg, mood))
	if len(memory) > memoryLimit {
		memory = memory[len(memory)-memoryLimit:]
	}
	return memory
}

// DispositionUpdate reports the clamped result of a disposition change.
type DispositionUpdate struct {
	NPCID       string `json:"npc_id"`
	Name        string `json:"name"`
	Change      int    `json:"disposition_change"`
	Disposition int    `json:"disposition"`
	Demeanor    string `json:"demeanor"`
}

// UpdateDisposition shifts an NPC's disposition in response to an event and
// records the event in the NPC's memory. The new disposition is clamped to
// [-100, 100].
func (s *Service) UpdateDisposition(ctx context.Context, npcID, description string, delta int) (*DispositionUpdate, error) {
	npc, err := s.Get(ctx, npcID)
	if err != nil {
		return nil, err
	}

	npc.Disposition = store.ClampDisposition(npc.Disposition + delta)
	npc.NPCMemory = append(npc.NPCMemory, fmt.Sprintf("Event: %s (disposition %+d)", description, delta))
	if len(npc.NPCMemory) > memoryLimit {
		npc.NPCMemory = npc.NPCMemory[len(npc.NPCMemory)-memoryLimit:]
	}
	npc.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateCharacter(ctx, npc); err != nil {
		return nil, fmt.Errorf("npc: update disposition: %w", err)
	}

	s.log.InfoContext(ctx, "npc disposition updated",
		"npc_id", npc.ID, "delta", delta, "disposition", npc.Disposition)

	return &DispositionUpdate{
		NPCID:       npc.ID,
		Name:        npc.Name,
		Change:      delta,
		Disposition: npc.Disposition,
		Demeanor:    Demeanor(npc.Disposition),
	}, nil
}

// Memory returns the NPC's most recent memory entries, newest last.
// A limit of 0 or less returns every stored entry.
func (s *Service) Memory(ctx context.Context, npcID string, limit int) ([]string, error) {
	npc, err := s.Get(ctx, npcID)
	if err != nil {
		return nil, err
	}
	mem := npc.NPCMemory
	if limit > 0 && len(mem) > limit {
		mem = mem[len(mem)-limit:]
	}
	return mem, nil
}

// PlayerView is what players are allowed to see of an NPC. Secret,
// motivation, disposition number, and internal thoughts stay behind the
// screen.
type PlayerView struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Race             string   `json:"race,omitempty"`
	Occupation       string   `json:"occupation,omitempty"`
	Appearance       string   `json:"appearance,omitempty"`
	Demeanor         string   `json:"demeanor"`
	ObservableTraits []string `json:"observable_traits,omitempty"`
	SpeechPattern    string   `json:"speech_pattern,omitempty"`
	IsAlive          bool     `json:"is_alive"`
}

// InfoForPlayers returns the player-safe projection of an NPC. Only the
// first two personality traits surface; the rest stay hidden with the
// secret and motivation.
func (s *Service) InfoForPlayers(ctx context.Context, npcID string) (*PlayerView, error) {
	npc, err := s.Get(ctx, npcID)
	if err != nil {
		return nil, err
	}
	traits := npc.PersonalityTraits
	if len(traits) > 2 {
		traits = traits[:2]
	}
	return &PlayerView{
		ID:               npc.ID,
		Name:             npc.Name,
		Race:             npc.Race,
		Occupation:       npc.Occupation,
		Appearance:       npc.Appearance,
		Demeanor:         Demeanor(npc.Disposition),
		ObservableTraits: traits,
		SpeechPattern:    string(npc.SpeechPattern),
		IsAlive:          npc.IsAlive,
	}, nil
}

// knowledgeContext renders the campaign's pinned subgraph for prompt use.
// Empty seeds fall back to the most important nodes. Failures degrade to the
// no-context sentinel rather than blocking the operation.
func (s *Service) knowledgeContext(ctx context.Context, campaignID string, seeds []string) string {
	out := knowledge.NoContextSentinel
	err := s.graphs.WithGraph(ctx, campaignID, func(g *knowledge.Graph) error {
		if len(seeds) == 0 {
			for _, n := range g.Timeline(3) {
				seeds = append(seeds, n.ID)
			}
			for _, n := range g.Nodes() {
				if n.Importance >= 7 {
					seeds = append(seeds, n.ID)
				}
			}
		}
		out = g.SubgraphForPrompt(seeds, 2, 30)
		return nil
	})
	if err != nil {
		s.log.WarnContext(ctx, "knowledge context unavailable", "campaign_id", campaignID, "error", err)
	}
	return out
}
