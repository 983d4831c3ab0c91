// Package world owns campaign and session lifecycle, player-character
// management, party movement, and experience progression.
package world

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
	"github.com/lorekeeperhq/lorekeeper/internal/observe"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

const levelCap = 20

// xpThresholds[n] is the total experience required to reach level n+1.
// Index 0 is level 1 (always reached).
var xpThresholds = [levelCap]int{
	0, 300, 900, 2700, 6500,
	14000, 23000, 34000, 48000, 64000,
	85000, 100000, 120000, 140000, 165000,
	195000, 225000, 265000, 305000, 355000,
}

// LevelForXP returns the level a character with the given total experience
// has earned, capped at levelCap.
func LevelForXP(xp int) int {
	level := 1
	for i := 1; i < levelCap; i++ {
		if xp >= xpThresholds[i] {
			level = i + 1
		}
	}
	return level
}

// Service implements world-state operations.
type Service struct {
	store   store.Store
	graphs  *knowledge.Registry
	log     *slog.Logger
	metrics *observe.Metrics
	now     func() time.Time
	newID   func() string
}

// Config carries the Service dependencies. Store is required.
type Config struct {
	Store   store.Store
	Graphs  *knowledge.Registry
	Logger  *slog.Logger
	Metrics *observe.Metrics

	Clock func() time.Time
	IDs   func() string
}

// NewService builds a world service.
func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
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
		graphs:  cfg.Graphs,
		log:     log.With("component", "world"),
		metrics: metrics,
		now:     now,
		newID:   ids,
	}
}

// ─── Campaigns ───────────────────────────────────────────────────────────────

// CampaignInput carries caller-supplied campaign fields.
type CampaignInput struct {
	Name        string
	Description string
	Genre       store.Genre
	Tone        store.Tone
	WorldRules  map[string]any
}

// CreateCampaign creates a campaign. Genre and tone default to fantasy /
// balanced when unset.
func (s *Service) CreateCampaign(ctx context.Context, in CampaignInput) (*store.Campaign, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("world: create campaign: name required: %w", lorerr.ErrInvalidInput)
	}
	if in.Genre == "" {
		in.Genre = store.GenreFantasy
	}
	if in.Tone == "" {
		in.Tone = store.ToneSerious
	}
	if !store.ValidGenre(in.Genre) {
		return nil, fmt.Errorf("world: create campaign: unknown genre %q: %w", in.Genre, lorerr.ErrInvalidInput)
	}
	if !store.ValidTone(in.Tone) {
		return nil, fmt.Errorf("world: create campaign: unknown tone %q: %w", in.Tone, lorerr.ErrInvalidInput)
	}

	c := &store.Campaign{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Genre:       in.Genre,
		Tone:        in.Tone,
		WorldRules:  in.WorldRules,
		CreatedAt:   s.now().UTC(),
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("world: create campaign: %w", err)
	}
	s.log.InfoContext(ctx, "created campaign", "campaign_id", c.ID, "name", c.Name)
	return c, nil
}

// CampaignDetail is a campaign with its aggregate counts.
type CampaignDetail struct {
	store.Campaign
	Counts store.CampaignCounts `json:"counts"`
}

// GetCampaign returns the campaign with its counts.
func (s *Service) GetCampaign(ctx context.Context, id string) (*CampaignDetail, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("world: get campaign: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("world: get campaign: campaign %q: %w", id, lorerr.ErrNotFound)
	}
	counts, err := s.store.CampaignCounts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("world: get campaign: %w", err)
	}
	return &CampaignDetail{Campaign: *c, Counts: counts}, nil
}

// UpdateCampaign applies the non-zero fields of in to the campaign.
func (s *Service) UpdateCampaign(ctx context.Context, id string, in CampaignInput) (*store.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("world: update campaign: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("world: update campaign: campaign %q: %w", id, lorerr.ErrNotFound)
	}

	if in.Name != "" {
		c.Name = in.Name
	}
	if in.Description != "" {
		c.Description = in.Description
	}
	if in.Genre != "" {
		if !store.ValidGenre(in.Genre) {
			return nil, fmt.Errorf("world: update campaign: unknown genre %q: %w", in.Genre, lorerr.ErrInvalidInput)
		}
		c.Genre = in.Genre
	}
	if in.Tone != "" {
		if !store.ValidTone(in.Tone) {
			return nil, fmt.Errorf("world: update campaign: unknown tone %q: %w", in.Tone, lorerr.ErrInvalidInput)
		}
		c.Tone = in.Tone
	}
	if in.WorldRules != nil {
		c.WorldRules = in.WorldRules
	}
	c.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("world: update campaign: %w", err)
	}
	return c, nil
}

// DeleteCampaign removes the campaign and everything under it, and evicts
// its cached knowledge graph.
func (s *Service) DeleteCampaign(ctx context.Context, id string) error {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return fmt.Errorf("world: delete campaign: %w", err)
	}
	if c == nil {
		return fmt.Errorf("world: delete campaign: campaign %q: %w", id, lorerr.ErrNotFound)
	}
	if err := s.store.DeleteCampaign(ctx, id); err != nil {
		return fmt.Errorf("world: delete campaign: %w", err)
	}
	if s.graphs != nil {
		s.graphs.Evict(id)
	}
	s.log.InfoContext(ctx, "deleted campaign", "campaign_id", id)
	return nil
}

// ListCampaigns returns a page of campaigns.
func (s *Service) ListCampaigns(ctx context.Context, offset, limit int) ([]*store.Campaign, error) {
	out, err := s.store.ListCampaigns(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("world: list campaigns: %w", err)
	}
	return out, nil
}

// ListCampaignDetails returns a page of campaigns with their session,
// character, and location counts attached.
func (s *Service) ListCampaignDetails(ctx context.Context, offset, limit int) ([]*CampaignDetail, error) {
	campaigns, err := s.ListCampaigns(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*CampaignDetail, 0, len(campaigns))
	for _, c := range campaigns {
		counts, err := s.store.CampaignCounts(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("world: list campaigns: counts for %q: %w", c.ID, err)
		}
		out = append(out, &CampaignDetail{Campaign: *c, Counts: counts})
	}
	return out, nil
}

// ─── Sessions ────────────────────────────────────────────────────────────────

// StartSession opens a new active session with the next session number. A
// campaign has at most one active session at a time.
func (s *Service) StartSession(ctx context.Context, campaignID string) (*store.Session, error) {
	c, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("world: start session: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("world: start session: campaign %q: %w", campaignID, lorerr.ErrNotFound)
	}

	existing, err := s.store.ListSessions(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("world: start session: %w", err)
	}
	for _, sess := range existing {
		if sess.Status == store.SessionActive {
			return nil, fmt.Errorf("world: start session: session %d is still active: %w",
				sess.SessionNumber, lorerr.ErrStateViolation)
		}
	}

	number, err := s.store.NextSessionNumber(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("world: start session: %w", err)
	}
	sess := &store.Session{
		ID:            s.newID(),
		CampaignID:    campaignID,
		SessionNumber: number,
		Status:        store.SessionActive,
		StartedAt:     s.now().UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("world: start session: %w", err)
	}

	s.metrics.ActiveSessions.Add(ctx, 1)
	s.log.InfoContext(ctx, "started session",
		"campaign_id", campaignID, "session_id", sess.ID, "session_number", number)
	return sess, nil
}

// GetSession returns one session.
func (s *Service) GetSession(ctx context.Context, id string) (*store.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("world: get session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("world: get session: session %q: %w", id, lorerr.ErrNotFound)
	}
	return sess, nil
}

// ListSessions returns the campaign's sessions in play order.
func (s *Service) ListSessions(ctx context.Context, campaignID string) ([]*store.Session, error) {
	out, err := s.store.ListSessions(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("world: list sessions: %w", err)
	}
	return out, nil
}

// SessionUpdate carries caller-supplied session fields for update. Nil
// pointers leave the stored value unchanged.
type SessionUpdate struct {
	Notes *string
	Recap *string
}

// UpdateSession updates the mutable fields of a session.
func (s *Service) UpdateSession(ctx context.Context, id string, in SessionUpdate) (*store.Session, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Notes != nil {
		sess.Notes = *in.Notes
	}
	if in.Recap != nil {
		sess.Recap = *in.Recap
	}
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("world: update session: %w", err)
	}
	return sess, nil
}

// EndSession marks an active session completed. Notes are appended to the
// session record.
func (s *Service) EndSession(ctx context.Context, sessionID, notes string) (*store.Session, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != store.SessionActive {
		return nil, fmt.Errorf("world: end session: session %q is %s: %w",
			sessionID, sess.Status, lorerr.ErrStateViolation)
	}

	sess.Status = store.SessionCompleted
	if notes != "" {
		sess.Notes = notes
	}
	ended := s.now().UTC()
	sess.EndedAt = &ended
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("world: end session: %w", err)
	}

	s.metrics.ActiveSessions.Add(ctx, -1)
	s.log.InfoContext(ctx, "ended session",
		"session_id", sessionID, "session_number", sess.SessionNumber)
	return sess, nil
}

// ─── Characters ──────────────────────────────────────────────────────────────

// CharacterInput carries caller-supplied character fields for create and
// update.
type CharacterInput struct {
	Name              string
	Race              string
	Class             string
	Level             int
	HPCurrent         *int
	HPMax             int
	ArmorClass        int
	Abilities         *store.Abilities
	Appearance        string
	Backstory         string
	PersonalityTraits []string
	Skills            []string
	Proficiencies     []string
	Languages         []string
	Equipment         map[string]any
	Inventory         []map[string]any
}

func validateAbilities(a store.Abilities) error {
	for _, score := range []int{
		a.Strength, a.Dexterity, a.Constitution,
		a.Intelligence, a.Wisdom, a.Charisma,
	} {
		if score < 1 || score > 30 {
			return fmt.Errorf("world: ability score %d outside [1, 30]: %w", score, lorerr.ErrInvalidInput)
		}
	}
	return nil
}

// CreateCharacter adds a player character to the campaign.
func (s *Service) CreateCharacter(ctx context.Context, campaignID string, in CharacterInput) (*store.Character, error) {
	c, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("world: create character: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("world: create character: campaign %q: %w", campaignID, lorerr.ErrNotFound)
	}
	if in.Name == "" {
		return nil, fmt.Errorf("world: create character: name required: %w", lorerr.ErrInvalidInput)
	}

	ch := &store.Character{
		ID:                s.newID(),
		CampaignID:        campaignID,
		Name:              in.Name,
		Type:              store.CharacterPC,
		Race:              in.Race,
		Class:             in.Class,
		Level:             in.Level,
		HPMax:             in.HPMax,
		ArmorClass:        in.ArmorClass,
		Appearance:        in.Appearance,
		Backstory:         in.Backstory,
		PersonalityTraits: in.PersonalityTraits,
		Skills:            in.Skills,
		Proficiencies:     in.Proficiencies,
		Languages:         in.Languages,
		Equipment:         in.Equipment,
		Inventory:         in.Inventory,
		IsAlive:           true,
		CreatedAt:         s.now().UTC(),
		UpdatedAt:         s.now().UTC(),
	}
	if ch.Level < 1 {
		ch.Level = 1
	}
	if ch.Level > levelCap {
		return nil, fmt.Errorf("world: create character: level %d above cap %d: %w", ch.Level, levelCap, lorerr.ErrInvalidInput)
	}
	if ch.HPMax < 1 {
		ch.HPMax = 10
	}
	if ch.ArmorClass < 1 {
		ch.ArmorClass = 10
	}
	if in.Abilities != nil {
		if err := validateAbilities(*in.Abilities); err != nil {
			return nil, err
		}
		ch.Abilities = *in.Abilities
	} else {
		ch.Abilities = store.Abilities{Strength: 10, Dexterity: 10, Constitution: 10, Intelligence: 10, Wisdom: 10, Charisma: 10}
	}
	if in.HPCurrent != nil {
		if *in.HPCurrent < 0 || *in.HPCurrent > ch.HPMax {
			return nil, fmt.Errorf("world: create character: hp_current %d outside [0, %d]: %w",
				*in.HPCurrent, ch.HPMax, lorerr.ErrInvalidInput)
		}
		ch.HPCurrent = *in.HPCurrent
	} else {
		ch.HPCurrent = ch.HPMax
	}

	if err := s.store.CreateCharacter(ctx, ch); err != nil {
		return nil, fmt.Errorf("world: create character: %w", err)
	}

	s.registerInGraph(ctx, ch)
	s.log.InfoContext(ctx, "created character",
		"campaign_id", campaignID, "character_id", ch.ID, "name", ch.Name)
	return ch, nil
}

// GetCharacter returns one character.
func (s *Service) GetCharacter(ctx context.Context, id string) (*store.Character, error) {
	ch, err := s.store.GetCharacter(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("world: get character: %w", err)
	}
	if ch == nil {
		return nil, fmt.Errorf("world: get character: character %q: %w", id, lorerr.ErrNotFound)
	}
	return ch, nil
}

// ListCharacters returns the campaign's characters, optionally filtered.
func (s *Service) ListCharacters(ctx context.Context, campaignID string, filter store.CharacterFilter) ([]*store.Character, error) {
	out, err := s.store.ListCharacters(ctx, campaignID, filter)
	if err != nil {
		return nil, fmt.Errorf("world: list characters: %w", err)
	}
	return out, nil
}

// UpdateCharacter applies the non-zero fields of in to the character.
// HPCurrent may exceed neither zero below nor HPMax above.
func (s *Service) UpdateCharacter(ctx context.Context, id string, in CharacterInput) (*store.Character, error) {
	ch, err := s.GetCharacter(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		ch.Name = in.Name
	}
	if in.Race != "" {
		ch.Race = in.Race
	}
	if in.Class != "" {
		ch.Class = in.Class
	}
	if in.Level > 0 {
		if in.Level > levelCap {
			return nil, fmt.Errorf("world: update character: level %d above cap %d: %w", in.Level, levelCap, lorerr.ErrInvalidInput)
		}
		ch.Level = in.Level
	}
	if in.HPMax > 0 {
		ch.HPMax = in.HPMax
		if ch.HPCurrent > ch.HPMax {
			ch.HPCurrent = ch.HPMax
		}
	}
	if in.ArmorClass > 0 {
		ch.ArmorClass = in.ArmorClass
	}
	if in.Abilities != nil {
		if err := validateAbilities(*in.Abilities); err != nil {
			return nil, err
		}
		ch.Abilities = *in.Abilities
	}
	if in.HPCurrent != nil {
		if *in.HPCurrent < 0 || *in.HPCurrent > ch.HPMax {
			return nil, fmt.Errorf("world: update character: hp_current %d outside [0, %d]: %w",
				*in.HPCurrent, ch.HPMax, lorerr.ErrInvalidInput)
		}
		ch.HPCurrent = *in.HPCurrent
		ch.IsAlive = ch.HPCurrent > 0
	}
	if in.Appearance != "" {
		ch.Appearance = in.Appearance
	}
	if in.Backstory != "" {
		ch.Backstory = in.Backstory
	}
	if in.PersonalityTraits != nil {
		ch.PersonalityTraits = in.PersonalityTraits
	}
	if in.Skills != nil {
		ch.Skills = in.Skills
	}
	if in.Proficiencies != nil {
		ch.Proficiencies = in.Proficiencies
	}
	if in.Languages != nil {
		ch.Languages = in.Languages
	}
	if in.Equipment != nil {
		ch.Equipment = in.Equipment
	}
	if in.Inventory != nil {
		ch.Inventory = in.Inventory
	}
	ch.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateCharacter(ctx, ch); err != nil {
		return nil, fmt.Errorf("world: update character: %w", err)
	}
	return ch, nil
}

// DeleteCharacter removes a character.
func (s *Service) DeleteCharacter(ctx context.Context, id string) error {
	if _, err := s.GetCharacter(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteCharacter(ctx, id); err != nil {
		return fmt.Errorf("world: delete character: %w", err)
	}
	return nil
}

// registerInGraph mirrors a new PC into the knowledge graph. Failures are
// logged, not fatal.
func (s *Service) registerInGraph(ctx context.Context, ch *store.Character) {
	if s.graphs == nil {
		return
	}
	err := s.graphs.WithGraph(ctx, ch.CampaignID, func(g *knowledge.Graph) error {
		if _, err := g.AddEntity(knowledge.EntityInput{
			ID:          ch.ID,
			Type:        knowledge.NodeCharacter,
			Name:        ch.Name,
			Description: fmt.Sprintf("Level %d %s %s", ch.Level, ch.Race, ch.Class),
			Importance:  7,
		}); err != nil {
			return err
		}
		return g.SaveTo(ctx, s.store)
	})
	if err != nil {
		s.log.WarnContext(ctx, "character graph registration failed", "character_id", ch.ID, "error", err)
	}
}

// ─── Party movement ──────────────────────────────────────────────────────────

// MoveResult reports the outcome of a party move.
type MoveResult struct {
	Location *store.Location `json:"location"`
	Moved    []string        `json:"moved_character_ids"`
	// AlreadyThere is true when the whole party was already at the
	// destination; the move is a no-op then.
	AlreadyThere bool `json:"already_there"`
}

// MoveParty moves all living player characters to the location and marks it
// discovered. Moving to the party's current location is a no-op.
func (s *Service) MoveParty(ctx context.Context, campaignID, locationID string) (*MoveResult, error) {
	loc, err := s.store.GetLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("world: move party: %w", err)
	}
	if loc == nil {
		return nil, fmt.Errorf("world: move party: location %q: %w", locationID, lorerr.ErrNotFound)
	}
	if loc.CampaignID != campaignID {
		return nil, fmt.Errorf("world: move party: location %q not in campaign %q: %w",
			locationID, campaignID, lorerr.ErrInvalidInput)
	}
	if !loc.IsAccessible {
		return nil, fmt.Errorf("world: move party: location %q is not accessible: %w",
			locationID, lorerr.ErrStateViolation)
	}

	party, err := s.store.ListCharacters(ctx, campaignID, store.CharacterFilter{
		Type: store.CharacterPC, AliveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("world: move party: %w", err)
	}

	result := &MoveResult{Location: loc, AlreadyThere: true}
	for _, ch := range party {
		if ch.CurrentLocationID != nil && *ch.CurrentLocationID == locationID {
			continue
		}
		result.AlreadyThere = false
		result.Moved = append(result.Moved, ch.ID)
	}
	if result.AlreadyThere {
		return result, nil
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		for _, ch := range party {
			if ch.CurrentLocationID != nil && *ch.CurrentLocationID == locationID {
				continue
			}
			lid := locationID
			ch.CurrentLocationID = &lid
			ch.UpdatedAt = s.now().UTC()
			if err := tx.UpdateCharacter(ctx, ch); err != nil {
				return err
			}
		}
		if !loc.IsDiscovered {
			loc.IsDiscovered = true
			loc.UpdatedAt = s.now().UTC()
			if err := tx.UpdateLocation(ctx, loc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("world: move party: %w", err)
	}

	s.log.InfoContext(ctx, "party moved",
		"campaign_id", campaignID, "location_id", locationID, "moved", len(result.Moved))
	return result, nil
}

// ─── Experience ──────────────────────────────────────────────────────────────

// XPAward reports the effect of an experience grant on one character.
type XPAward struct {
	CharacterID string `json:"character_id"`
	Name        string `json:"name"`
	XPGained    int    `json:"xp_gained"`
	XPTotal     int    `json:"xp_total"`
	OldLevel    int    `json:"old_level"`
	NewLevel    int    `json:"new_level"`
	LeveledUp   bool   `json:"leveled_up"`
	HPGained    int    `json:"hp_gained"`
}

// AwardXP grants experience to every living player character in the
// campaign. Each level gained adds 5 + constitution modifier hit points.
func (s *Service) AwardXP(ctx context.Context, campaignID string, amount int) ([]XPAward, error) {
	if amount < 0 {
		return nil, fmt.Errorf("world: award xp: negative amount %d: %w", amount, lorerr.ErrInvalidInput)
	}

	party, err := s.store.ListCharacters(ctx, campaignID, store.CharacterFilter{
		Type: store.CharacterPC, AliveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("world: award xp: %w", err)
	}
	if len(party) == 0 {
		return nil, fmt.Errorf("world: award xp: no living party members in campaign %q: %w",
			campaignID, lorerr.ErrNotFound)
	}

	// The pot is split evenly; integer division means a small remainder is
	// simply lost, matching tabletop bookkeeping.
	share := amount / len(party)

	awards := make([]XPAward, 0, len(party))
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		for _, ch := range party {
			award := XPAward{
				CharacterID: ch.ID,
				Name:        ch.Name,
				XPGained:    share,
				OldLevel:    ch.Level,
			}
			ch.Experience += share
			award.XPTotal = ch.Experience

			newLevel := LevelForXP(ch.Experience)
			if newLevel > ch.Level {
				conMod := store.Modifier(ch.Abilities.Constitution)
				for lvl := ch.Level; lvl < newLevel; lvl++ {
					gain := 5 + conMod
					if gain < 1 {
						gain = 1
					}
					ch.HPMax += gain
					ch.HPCurrent += gain
					award.HPGained += gain
				}
				ch.Level = newLevel
				award.LeveledUp = true
			}
			award.NewLevel = ch.Level

			ch.UpdatedAt = s.now().UTC()
			if err := tx.UpdateCharacter(ctx, ch); err != nil {
				return err
			}
			awards = append(awards, award)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("world: award xp: %w", err)
	}

	s.log.InfoContext(ctx, "awarded experience",
		"campaign_id", campaignID, "amount", amount, "characters", len(awards))
	return awards, nil
}

// ─── Timeline ────────────────────────────────────────────────────────────────

// TimelineEntry is one story event annotated with its session number.
type TimelineEntry struct {
	SessionNumber int               `json:"session_number"`
	Event         *store.StoryEvent `json:"event"`
}

// Timeline returns the campaign's story events across all sessions in play
// order, most recent last. A positive limit keeps only the trailing
// entries.
func (s *Service) Timeline(ctx context.Context, campaignID string, limit int) ([]TimelineEntry, error) {
	sessions, err := s.store.ListSessions(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("world: timeline: %w", err)
	}

	var entries []TimelineEntry
	for _, sess := range sessions {
		events, err := s.store.ListStoryEvents(ctx, sess.ID, store.EventPage{})
		if err != nil {
			return nil, fmt.Errorf("world: timeline: %w", err)
		}
		for _, ev := range events {
			entries = append(entries, TimelineEntry{SessionNumber: sess.SessionNumber, Event: ev})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SessionNumber != entries[j].SessionNumber {
			return entries[i].SessionNumber < entries[j].SessionNumber
		}
		return entries[i].Event.SequenceOrder < entries[j].Event.SequenceOrder
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// ─── Aggregate views ─────────────────────────────────────────────────────────

// PartyMember is one player character line in the party status view.
type PartyMember struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Race              string   `json:"race,omitempty"`
	Class             string   `json:"class,omitempty"`
	Level             int      `json:"level"`
	HPCurrent         int      `json:"hp_current"`
	HPMax             int      `json:"hp_max"`
	HPPercent         float64  `json:"hp_percentage"`
	ArmorClass        int      `json:"ac"`
	IsAlive           bool     `json:"is_alive"`
	Conditions        []string `json:"conditions"`
	Experience        int      `json:"xp"`
	CurrentLocationID *string  `json:"current_location_id,omitempty"`
}

// PartyStatus aggregates the campaign's player characters. HP totals count
// living members only; experience counts everyone.
type PartyStatus struct {
	PartySize    int           `json:"party_size"`
	AliveMembers int           `json:"alive_members"`
	TotalHP      int           `json:"total_hp"`
	TotalHPMax   int           `json:"total_max_hp"`
	HPPercent    float64       `json:"hp_percentage"`
	AverageLevel float64       `json:"average_level"`
	TotalXP      int           `json:"total_xp"`
	Members      []PartyMember `json:"members"`
}

// PartyStatus returns the aggregate view of the campaign's party.
func (s *Service) PartyStatus(ctx context.Context, campaignID string) (*PartyStatus, error) {
	party, err := s.store.ListCharacters(ctx, campaignID, store.CharacterFilter{Type: store.CharacterPC})
	if err != nil {
		return nil, fmt.Errorf("world: party status: %w", err)
	}

	status := &PartyStatus{PartySize: len(party), Members: make([]PartyMember, 0, len(party))}
	totalLevel := 0
	for _, ch := range party {
		if ch.IsAlive {
			status.AliveMembers++
			status.TotalHP += ch.HPCurrent
			status.TotalHPMax += ch.HPMax
		}
		status.TotalXP += ch.Experience
		totalLevel += ch.Level

		hpPct := 0.0
		if ch.HPMax > 0 {
			hpPct = round1(float64(ch.HPCurrent) / float64(ch.HPMax) * 100)
		}
		status.Members = append(status.Members, PartyMember{
			ID: ch.ID, Name: ch.Name, Race: ch.Race, Class: ch.Class,
			Level: ch.Level, HPCurrent: ch.HPCurrent, HPMax: ch.HPMax,
			HPPercent: hpPct, ArmorClass: ch.ArmorClass, IsAlive: ch.IsAlive,
			Conditions: ch.Conditions, Experience: ch.Experience,
			CurrentLocationID: ch.CurrentLocationID,
		})
	}

	if status.TotalHPMax > 0 {
		status.HPPercent = round1(float64(status.TotalHP) / float64(status.TotalHPMax) * 100)
	}
	if len(party) > 0 {
		status.AverageLevel = round1(float64(totalLevel) / float64(len(party)))
	} else {
		status.AverageLevel = 1
	}
	return status, nil
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// PresentCharacter is one character standing at a location. Disposition is
// exposed for NPCs only.
type PresentCharacter struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Type        store.CharacterType `json:"type"`
	Disposition *int                `json:"disposition,omitempty"`
}

// LocationState is the detailed view of one location: its row, everyone
// standing there, and what the knowledge graph holds about it.
type LocationState struct {
	Location          *store.Location    `json:"location"`
	CharactersPresent []PresentCharacter `json:"characters_present"`
	RecentEvents      []knowledge.Node   `json:"recent_events,omitempty"`
	KnownItems        []knowledge.Node   `json:"known_items,omitempty"`
}

// LocationState gathers the location row, the living characters currently
// there, and the location's graph neighborhood. A location with no graph
// node yields empty knowledge buckets rather than an error.
func (s *Service) LocationState(ctx context.Context, locationID string) (*LocationState, error) {
	loc, err := s.store.GetLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("world: location state: %w", err)
	}
	if loc == nil {
		return nil, fmt.Errorf("world: location state: location %q: %w", locationID, lorerr.ErrNotFound)
	}

	chars, err := s.store.ListCharacters(ctx, loc.CampaignID, store.CharacterFilter{AliveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("world: location state: %w", err)
	}

	state := &LocationState{Location: loc, CharactersPresent: []PresentCharacter{}}
	for _, ch := range chars {
		if ch.CurrentLocationID == nil || *ch.CurrentLocationID != locationID {
			continue
		}
		pc := PresentCharacter{ID: ch.ID, Name: ch.Name, Type: ch.Type}
		if ch.Type == store.CharacterNPC {
			d := ch.Disposition
			pc.Disposition = &d
		}
		state.CharactersPresent = append(state.CharactersPresent, pc)
	}

	if s.graphs != nil {
		err = s.graphs.WithGraph(ctx, loc.CampaignID, func(g *knowledge.Graph) error {
			lctx, err := g.ContextForLocation(locationID)
			if err != nil {
				// The location has no graph node yet.
				return nil
			}
			state.RecentEvents = capNodes(lctx.RecentEvents, 5)
			state.KnownItems = capNodes(lctx.Items, 10)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("world: location state: %w", err)
		}
	}
	return state, nil
}

func capNodes(nodes []knowledge.Node, n int) []knowledge.Node {
	if len(nodes) > n {
		nodes = nodes[:n]
	}
	return nodes
}
