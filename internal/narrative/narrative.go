// Package narrative drives the story loop: opening scenes, story beats in
// response to player actions, choice branching, streaming narration, and
// session recaps.
//
// Every beat that mutates the knowledge graph runs under the campaign's
// graph lock, so context building, generation, graph mutation, and
// persistence form one serialized unit per campaign.
package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lorekeeperhq/lorekeeper/internal/generator"
	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
	"github.com/lorekeeperhq/lorekeeper/internal/observe"
	"github.com/lorekeeperhq/lorekeeper/internal/prompt"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
	"github.com/lorekeeperhq/lorekeeper/internal/world"
)

// recentEventWindow is how many trailing events feed the prompt context.
const recentEventWindow = 10

// storyClipLen truncates prior story text in the recent-events context.
const storyClipLen = 200

// Service implements the story loop.
type Service struct {
	store   store.Store
	gen     *generator.Generator
	catalog *prompt.Catalog
	graphs  *knowledge.Registry
	world   *world.Service
	log     *slog.Logger
	metrics *observe.Metrics
	now     func() time.Time
	newID   func() string
}

// Config carries the Service dependencies. Store, Generator, Catalog, and
// Graphs are required. World, when set, receives experience awards declared
// by story beats.
type Config struct {
	Store     store.Store
	Generator *generator.Generator
	Catalog   *prompt.Catalog
	Graphs    *knowledge.Registry
	World     *world.Service
	Logger    *slog.Logger
	Metrics   *observe.Metrics

	// Clock and IDs are overridable for tests.
	Clock func() time.Time
	IDs   func() string
}

// NewService builds a narrative service.
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
		world:   cfg.World,
		log:     log.With("component", "narrative"),
		metrics: m,
		now:     now,
		newID:   ids,
	}
}

// Events returns a page of the session's story feed.
func (s *Service) Events(ctx context.Context, sessionID string, page store.EventPage) ([]*store.StoryEvent, error) {
	if _, err := s.activeOrAnySession(ctx, sessionID); err != nil {
		return nil, err
	}
	events, err := s.store.ListStoryEvents(ctx, sessionID, page)
	if err != nil {
		return nil, fmt.Errorf("narrative: events: %w", err)
	}
	return events, nil
}

// ─── Beat context ────────────────────────────────────────────────────────────

// beatContext is everything a story prompt needs about the current state of
// the session.
type beatContext struct {
	campaign  *store.Campaign
	session   *store.Session
	party     []*store.Character
	recent    []*store.StoryEvent
	location  *store.Location
	knowledge string
}

// loadBeatContext gathers the prompt context. The store reads fan out
// concurrently; the knowledge context is rendered from the graph the caller
// already holds.
func (s *Service) loadBeatContext(ctx context.Context, g *knowledge.Graph, sess *store.Session, campaign *store.Campaign) (*beatContext, error) {
	bc := &beatContext{campaign: campaign, session: sess}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		party, err := s.store.ListCharacters(egCtx, campaign.ID, store.CharacterFilter{
			Type: store.CharacterPC, AliveOnly: true,
		})
		if err != nil {
			return err
		}
		bc.party = party
		return nil
	})
	eg.Go(func() error {
		total, err := s.store.MaxSequenceOrder(egCtx, sess.ID)
		if err != nil {
			return err
		}
		offset := total - recentEventWindow
		if offset < 0 {
			offset = 0
		}
		recent, err := s.store.ListStoryEvents(egCtx, sess.ID, store.EventPage{Offset: offset, Limit: recentEventWindow})
		if err != nil {
			return err
		}
		bc.recent = recent
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("narrative: load context: %w", err)
	}

	// The party shares a location; the first member that has one wins.
	for _, ch := range bc.party {
		if ch.CurrentLocationID == nil {
			continue
		}
		loc, err := s.store.GetLocation(ctx, *ch.CurrentLocationID)
		if err != nil {
			return nil, fmt.Errorf("narrative: load context: %w", err)
		}
		bc.location = loc
		break
	}

	// The subgraph centers on the party: every PC node plus the location
	// they are standing in. PCs join the graph under their character row
	// IDs when they are created.
	seeds := make([]string, 0, len(bc.party)+1)
	for _, ch := range bc.party {
		seeds = append(seeds, ch.ID)
	}
	if bc.location != nil {
		seeds = append(seeds, bc.location.ID)
	}
	bc.knowledge = g.SubgraphForPrompt(seeds, 2, 30)

	return bc, nil
}

func (bc *beatContext) recentEvents() string {
	if len(bc.recent) == 0 {
		return "The story is just beginning."
	}
	var lines []string
	for _, ev := range bc.recent {
		if ev.PlayerAction != "" {
			lines = append(lines, "Player: "+ev.PlayerAction)
		}
		content := ev.Content
		if len(content) > storyClipLen {
			content = content[:storyClipLen]
		}
		lines = append(lines, "Story: "+content)
	}
	return strings.Join(lines, "\n")
}

func (bc *beatContext) characterSummaries() string {
	if len(bc.party) == 0 {
		return "No active characters."
	}
	var lines []string
	for _, ch := range bc.party {
		lines = append(lines, fmt.Sprintf("%s (Level %d %s %s, HP %d/%d)",
			ch.Name, ch.Level, ch.Race, ch.Class, ch.HPCurrent, ch.HPMax))
	}
	return strings.Join(lines, "\n")
}

func (bc *beatContext) locationDescription() string {
	if bc.location == nil {
		return "An unknown place."
	}
	return fmt.Sprintf("%s: %s", bc.location.Name, bc.location.Description)
}

// ─── Story beats ─────────────────────────────────────────────────────────────

// ActionInput is one declared player action.
type ActionInput struct {
	Action  string
	Context string
}

// Action advances the story by one beat. The campaign's graph lock is held
// for the whole beat; a failure after graph mutation rolls the graph back.
func (s *Service) Action(ctx context.Context, sessionID string, in ActionInput) (*store.StoryEvent, error) {
	if strings.TrimSpace(in.Action) == "" {
		return nil, fmt.Errorf("narrative: action: empty action: %w", lorerr.ErrInvalidInput)
	}
	sess, campaign, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var event *store.StoryEvent
	err = s.graphs.WithGraphRollback(ctx, campaign.ID, func(g *knowledge.Graph) error {
		bc, err := s.loadBeatContext(ctx, g, sess, campaign)
		if err != nil {
			return err
		}

		rendered, err := s.catalog.Render(prompt.TplNarrative, map[string]string{
			"genre":                string(campaign.Genre),
			"campaign_name":        campaign.Name,
			"tone":                 string(campaign.Tone),
			"knowledge_context":    bc.knowledge,
			"recent_events":        bc.recentEvents(),
			"character_summaries":  bc.characterSummaries(),
			"location_description": bc.locationDescription(),
			"player_action":        in.Action,
			"additional_context":   in.Context,
		})
		if err != nil {
			return err
		}

		data, err := s.gen.GenerateStructuredWithRetry(ctx, rendered.System, rendered.User)
		if err != nil {
			return err
		}

		event, err = s.buildEvent(ctx, bc, in, data)
		if err != nil {
			return err
		}
		s.applyNewEntities(ctx, g, event)

		if err := g.SaveTo(ctx, s.store); err != nil {
			return err
		}
		return s.store.CreateStoryEvent(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("narrative: action: %w", err)
	}

	s.awardBeatXP(ctx, campaign.ID, event)
	s.metrics.RecordStoryBeat(ctx, campaign.ID)
	s.log.InfoContext(ctx, "story beat",
		"session_id", sessionID, "sequence", event.SequenceOrder,
		"mood", event.Mood, "parse_error", event.ParseError)
	return event, nil
}

// buildEvent turns a generator payload into the persisted story event.
func (s *Service) buildEvent(ctx context.Context, bc *beatContext, in ActionInput, data map[string]any) (*store.StoryEvent, error) {
	seq, err := s.store.MaxSequenceOrder(ctx, bc.session.ID)
	if err != nil {
		return nil, err
	}

	ev := &store.StoryEvent{
		ID:            s.newID(),
		SessionID:     bc.session.ID,
		EventType:     store.EventNarrative,
		PlayerAction:  in.Action,
		Content:       generator.Str(data, "narrative"),
		Choices:       generator.StrSlice(data, "choices"),
		Mood:          generator.Str(data, "mood"),
		SequenceOrder: seq + 1,
		CreatedAt:     s.now().UTC(),
	}
	if ev.Mood == "" {
		ev.Mood = "neutral"
	}
	if data[generator.KeyParseError] == true {
		ev.ParseError = true
	}
	if bc.location != nil {
		lid := bc.location.ID
		ev.LocationID = &lid
	}
	for _, ch := range bc.party {
		ev.CharacterIDs = append(ev.CharacterIDs, ch.ID)
	}

	for _, ent := range generator.Maps(data, "new_entities") {
		ev.NewEntities = append(ev.NewEntities, store.NewEntity{
			Name:        generator.Str(ent, "name"),
			Type:        generator.Str(ent, "type"),
			Description: generator.Str(ent, "description"),
		})
	}
	// Relationship deltas are recorded for curation, never applied.
	for _, upd := range generator.Maps(data, "knowledge_updates") {
		ev.KnowledgeUpdates = append(ev.KnowledgeUpdates, store.KnowledgeUpdate{
			Entity:       generator.Str(upd, "entity"),
			Relationship: generator.Str(upd, "relationship"),
			Target:       generator.Str(upd, "target"),
		})
	}
	if xp := generator.Num(data, "xp_awarded"); xp > 0 {
		ev.XPAwarded = int(xp)
	}
	return ev, nil
}

// applyNewEntities adds a beat's declared entities to the graph. Entities
// the graph rejects are dropped from the event as well, so the record never
// claims a birth that did not happen.
func (s *Service) applyNewEntities(ctx context.Context, g *knowledge.Graph, ev *store.StoryEvent) {
	kept := ev.NewEntities[:0]
	for _, ent := range ev.NewEntities {
		typ := knowledge.NodeType(ent.Type)
		if !knowledge.ValidNodeType(typ) {
			typ = knowledge.NodeLore
		}
		if _, err := g.AddEntity(knowledge.EntityInput{
			ID:          s.newID(),
			Type:        typ,
			Name:        ent.Name,
			Description: ent.Description,
		}); err != nil {
			s.log.WarnContext(ctx, "dropped generated entity", "name", ent.Name, "error", err)
			continue
		}
		kept = append(kept, ent)
	}
	ev.NewEntities = kept
}

// awardBeatXP forwards a beat's experience grant to the party. Failures are
// logged, not fatal; the grant is already recorded on the event.
func (s *Service) awardBeatXP(ctx context.Context, campaignID string, ev *store.StoryEvent) {
	if s.world == nil || ev.XPAwarded <= 0 {
		return
	}
	if _, err := s.world.AwardXP(ctx, campaignID, ev.XPAwarded); err != nil {
		s.log.WarnContext(ctx, "beat xp award failed", "campaign_id", campaignID, "error", err)
	}
}

// ─── Opening ─────────────────────────────────────────────────────────────────

// OpeningInput parameterizes the session's opening scene.
type OpeningInput struct {
	// Style flavors the opening; defaults to "dramatic and evocative".
	Style string

	// IncludeRecap prepends the previous session's recap to the prompt
	// context. Has no effect on a campaign's first session.
	IncludeRecap bool
}

// Opening generates the first beat of a session. It fails on a session that
// already has story events.
func (s *Service) Opening(ctx context.Context, sessionID string, in OpeningInput) (*store.StoryEvent, error) {
	sess, campaign, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	max, err := s.store.MaxSequenceOrder(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("narrative: opening: %w", err)
	}
	if max > 0 {
		return nil, fmt.Errorf("narrative: opening: session %q already has %d events: %w",
			sessionID, max, lorerr.ErrStateViolation)
	}

	style := in.Style
	if style == "" {
		style = "dramatic and evocative"
	}
	recapSection := ""
	if in.IncludeRecap && sess.SessionNumber > 1 {
		if prev := s.previousRecap(ctx, campaign.ID, sess.SessionNumber); prev != "" {
			recapSection = "Previously: " + prev
		}
	}

	var event *store.StoryEvent
	err = s.graphs.WithGraphRollback(ctx, campaign.ID, func(g *knowledge.Graph) error {
		bc, err := s.loadBeatContext(ctx, g, sess, campaign)
		if err != nil {
			return err
		}

		rendered, err := s.catalog.Render(prompt.TplOpening, map[string]string{
			"genre":               string(campaign.Genre),
			"campaign_name":       campaign.Name,
			"tone":                string(campaign.Tone),
			"knowledge_context":   bc.knowledge,
			"character_summaries": bc.characterSummaries(),
			"style":               style,
			"recap_section":       recapSection,
		})
		if err != nil {
			return err
		}

		data, err := s.gen.GenerateStructuredWithRetry(ctx, rendered.System, rendered.User)
		if err != nil {
			return err
		}

		event, err = s.buildEvent(ctx, bc, ActionInput{}, data)
		if err != nil {
			return err
		}
		s.applyNewEntities(ctx, g, event)

		if err := g.SaveTo(ctx, s.store); err != nil {
			return err
		}
		return s.store.CreateStoryEvent(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("narrative: opening: %w", err)
	}

	s.metrics.RecordStoryBeat(ctx, campaign.ID)
	s.log.InfoContext(ctx, "opening scene", "session_id", sessionID, "mood", event.Mood)
	return event, nil
}

// previousRecap returns the recap of the most recent earlier session, if
// any.
func (s *Service) previousRecap(ctx context.Context, campaignID string, before int) string {
	sessions, err := s.store.ListSessions(ctx, campaignID)
	if err != nil {
		return ""
	}
	recap := ""
	for _, sess := range sessions {
		if sess.SessionNumber < before && sess.Recap != "" {
			recap = sess.Recap
		}
	}
	return recap
}

// ─── Choices ─────────────────────────────────────────────────────────────────

// Choose advances the story along one of the choices presented by the
// session's latest beat.
func (s *Service) Choose(ctx context.Context, sessionID, eventID string, index int) (*store.StoryEvent, error) {
	if _, _, err := s.activeSession(ctx, sessionID); err != nil {
		return nil, err
	}

	source, err := s.store.GetStoryEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("narrative: choose: %w", err)
	}
	if source == nil || source.SessionID != sessionID {
		return nil, fmt.Errorf("narrative: choose: event %q: %w", eventID, lorerr.ErrNotFound)
	}
	if len(source.Choices) == 0 {
		return nil, fmt.Errorf("narrative: choose: event %q offers no choices: %w", eventID, lorerr.ErrStateViolation)
	}
	if index < 0 || index >= len(source.Choices) {
		return nil, fmt.Errorf("narrative: choose: index %d outside [0, %d): %w",
			index, len(source.Choices), lorerr.ErrInvalidInput)
	}

	// The branch point is recorded on the event that presented the
	// choices, not on the beat that follows from them.
	idx := index
	source.ChosenIndex = &idx
	if err := s.store.UpdateStoryEvent(ctx, source); err != nil {
		return nil, fmt.Errorf("narrative: choose: %w", err)
	}

	chosen := source.Choices[index]
	return s.Action(ctx, sessionID, ActionInput{
		Action:  chosen,
		Context: "The player chose: " + chosen,
	})
}

// ─── Streaming ───────────────────────────────────────────────────────────────

// Stream narrates a player action as a live token stream. The full text is
// persisted as a story event once the stream ends; streamed beats carry no
// structured payload, so the graph is read but never mutated.
func (s *Service) Stream(ctx context.Context, sessionID string, in ActionInput) (<-chan string, error) {
	if strings.TrimSpace(in.Action) == "" {
		return nil, fmt.Errorf("narrative: stream: empty action: %w", lorerr.ErrInvalidInput)
	}
	sess, campaign, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var bc *beatContext
	err = s.graphs.WithGraph(ctx, campaign.ID, func(g *knowledge.Graph) error {
		bc, err = s.loadBeatContext(ctx, g, sess, campaign)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("narrative: stream: %w", err)
	}

	rendered, err := s.catalog.Render(prompt.TplNarrative, map[string]string{
		"genre":                string(campaign.Genre),
		"campaign_name":        campaign.Name,
		"tone":                 string(campaign.Tone),
		"knowledge_context":    bc.knowledge,
		"recent_events":        bc.recentEvents(),
		"character_summaries":  bc.characterSummaries(),
		"location_description": bc.locationDescription(),
		"player_action":        in.Action,
		"additional_context":   in.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("narrative: stream: %w", err)
	}

	chunks, err := s.gen.GenerateStreaming(ctx, rendered.System, rendered.User)
	if err != nil {
		return nil, fmt.Errorf("narrative: stream: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		var full strings.Builder
		for chunk := range chunks {
			full.WriteString(chunk)
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		s.persistStreamedBeat(context.WithoutCancel(ctx), bc, in, full.String())
	}()
	return out, nil
}

func (s *Service) persistStreamedBeat(ctx context.Context, bc *beatContext, in ActionInput, content string) {
	if content == "" {
		return
	}
	seq, err := s.store.MaxSequenceOrder(ctx, bc.session.ID)
	if err != nil {
		s.log.ErrorContext(ctx, "streamed beat lost", "session_id", bc.session.ID, "error", err)
		return
	}
	ev := &store.StoryEvent{
		ID:            s.newID(),
		SessionID:     bc.session.ID,
		EventType:     store.EventNarrative,
		PlayerAction:  in.Action,
		Content:       content,
		Mood:          "neutral",
		SequenceOrder: seq + 1,
		CreatedAt:     s.now().UTC(),
	}
	if bc.location != nil {
		lid := bc.location.ID
		ev.LocationID = &lid
	}
	if err := s.store.CreateStoryEvent(ctx, ev); err != nil {
		s.log.ErrorContext(ctx, "streamed beat lost", "session_id", bc.session.ID, "error", err)
		return
	}
	s.metrics.RecordStoryBeat(ctx, bc.campaign.ID)
}

// ─── Recap ───────────────────────────────────────────────────────────────────

// RecapResult is the generated session recap.
type RecapResult struct {
	SessionID         string   `json:"session_id"`
	SessionNumber     int      `json:"session_number"`
	Recap             string   `json:"recap"`
	KeyEvents         []string `json:"key_events,omitempty"`
	UnresolvedThreads []string `json:"unresolved_threads,omitempty"`
	DramaticQuestion  string   `json:"dramatic_question,omitempty"`
}

// Recap summarizes the session's events and persists the recap text on the
// session record.
func (s *Service) Recap(ctx context.Context, sessionID string) (*RecapResult, error) {
	sess, campaign, err := s.anySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	events, err := s.store.ListStoryEvents(ctx, sessionID, store.EventPage{})
	if err != nil {
		return nil, fmt.Errorf("narrative: recap: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("narrative: recap: session %q has no events: %w", sessionID, lorerr.ErrStateViolation)
	}

	var summary, items []string
	names := map[string]bool{}
	locations := map[string]bool{}
	for _, ev := range events {
		line := ev.Content
		if len(line) > storyClipLen {
			line = line[:storyClipLen]
		}
		if ev.PlayerAction != "" {
			summary = append(summary, fmt.Sprintf("%d. Player: %s / Story: %s", ev.SequenceOrder, ev.PlayerAction, line))
		} else {
			summary = append(summary, fmt.Sprintf("%d. %s", ev.SequenceOrder, line))
		}
		for _, id := range ev.CharacterIDs {
			names[id] = true
		}
		if ev.LocationID != nil {
			locations[*ev.LocationID] = true
		}
		for _, item := range ev.ItemsAwarded {
			if n, ok := item["name"].(string); ok {
				items = append(items, n)
			}
		}
	}

	rendered, err := s.catalog.Render(prompt.TplRecap, map[string]string{
		"genre":          string(campaign.Genre),
		"tone":           string(campaign.Tone),
		"session_number": fmt.Sprintf("%d", sess.SessionNumber),
		"events_summary": strings.Join(summary, "\n"),
		"characters":     s.nameList(ctx, names, s.characterName),
		"locations":      s.nameList(ctx, locations, s.locationName),
		"items":          orNone(strings.Join(items, ", ")),
	})
	if err != nil {
		return nil, fmt.Errorf("narrative: recap: %w", err)
	}

	data, err := s.gen.GenerateStructuredWithRetry(ctx, rendered.System, rendered.User)
	if err != nil {
		return nil, fmt.Errorf("narrative: recap: %w", err)
	}

	result := &RecapResult{
		SessionID:         sessionID,
		SessionNumber:     sess.SessionNumber,
		Recap:             generator.Str(data, "recap"),
		KeyEvents:         generator.StrSlice(data, "key_events"),
		UnresolvedThreads: generator.StrSlice(data, "unresolved_threads"),
		DramaticQuestion:  generator.Str(data, "dramatic_question"),
	}
	if result.Recap == "" {
		// Sentinel payloads park the raw text under "narrative".
		result.Recap = generator.Str(data, "narrative")
	}

	sess.Recap = result.Recap
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("narrative: recap: %w", err)
	}

	s.log.InfoContext(ctx, "session recap",
		"session_id", sessionID, "session_number", sess.SessionNumber)
	return result, nil
}

func (s *Service) nameList(ctx context.Context, ids map[string]bool, lookup func(context.Context, string) string) string {
	var names []string
	for id := range ids {
		if n := lookup(ctx, id); n != "" {
			names = append(names, n)
		}
	}
	return orNone(strings.Join(names, ", "))
}

func (s *Service) characterName(ctx context.Context, id string) string {
	ch, err := s.store.GetCharacter(ctx, id)
	if err != nil || ch == nil {
		return ""
	}
	return ch.Name
}

func (s *Service) locationName(ctx context.Context, id string) string {
	loc, err := s.store.GetLocation(ctx, id)
	if err != nil || loc == nil {
		return ""
	}
	return loc.Name
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}

// ─── Session lookup ──────────────────────────────────────────────────────────

// activeSession loads the session and its campaign, requiring the session
// to be active.
func (s *Service) activeSession(ctx context.Context, sessionID string) (*store.Session, *store.Campaign, error) {
	sess, campaign, err := s.anySession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status != store.SessionActive {
		return nil, nil, fmt.Errorf("narrative: session %q is %s: %w", sessionID, sess.Status, lorerr.ErrStateViolation)
	}
	return sess, campaign, nil
}

func (s *Service) anySession(ctx context.Context, sessionID string) (*store.Session, *store.Campaign, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("narrative: %w", err)
	}
	if sess == nil {
		return nil, nil, fmt.Errorf("narrative: session %q: %w", sessionID, lorerr.ErrNotFound)
	}
	campaign, err := s.store.GetCampaign(ctx, sess.CampaignID)
	if err != nil {
		return nil, nil, fmt.Errorf("narrative: %w", err)
	}
	if campaign == nil {
		return nil, nil, fmt.Errorf("narrative: campaign %q: %w", sess.CampaignID, lorerr.ErrNotFound)
	}
	return sess, campaign, nil
}

func (s *Service) activeOrAnySession(ctx context.Context, sessionID string) (*store.Session, error) {
	sess, _, err := s.anySession(ctx, sessionID)
	return sess, err
}
