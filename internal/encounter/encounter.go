// Package encounter runs combat, social, and puzzle encounters: LLM-backed
// design, initiative and turn order, action adjudication, balance analysis,
// and loot.
package encounter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeeperhq/lorekeeper/internal/dice"
	"github.com/lorekeeperhq/lorekeeper/internal/generator"
	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
	"github.com/lorekeeperhq/lorekeeper/internal/observe"
	"github.com/lorekeeperhq/lorekeeper/internal/prompt"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// enemyDamage is the flat damage notation used when an enemy stat block
// carries no attacks of its own.
const enemyDamage = "1d8+2"

// Service implements encounter operations.
type Service struct {
	store   store.Store
	gen     *generator.Generator
	catalog *prompt.Catalog
	graphs  *knowledge.Registry
	roller  *dice.Roller
	log     *slog.Logger
	metrics *observe.Metrics
	now     func() time.Time
	newID   func() string
}

// Config carries the Service dependencies. Store, Generator, and Catalog are
// required; Roller defaults to the system random source.
type Config struct {
	Store     store.Store
	Generator *generator.Generator
	Catalog   *prompt.Catalog
	Graphs    *knowledge.Registry
	Roller    *dice.Roller
	Logger    *slog.Logger
	Metrics   *observe.Metrics

	Clock func() time.Time
	IDs   func() string
}

// NewService builds an encounter service.
func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	roller := cfg.Roller
	if roller == nil {
		roller = dice.NewDefault()
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
		roller:  roller,
		log:     log.With("component", "encounter"),
		metrics: m,
		now:     now,
		newID:   ids,
	}
}

// Get returns the encounter with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*store.Encounter, error) {
	e, err := s.store.GetEncounter(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("encounter: get: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("encounter: get: encounter %q: %w", id, lorerr.ErrNotFound)
	}
	return e, nil
}

// List returns the session's encounters.
func (s *Service) List(ctx context.Context, sessionID string) ([]*store.Encounter, error) {
	out, err := s.store.ListEncounters(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("encounter: list: %w", err)
	}
	return out, nil
}

// CreateInput parameterizes encounter generation.
type CreateInput struct {
	Type       store.EncounterType
	Difficulty store.Difficulty
	Theme      string
	LocationID string
}

// Create designs a new encounter for the session via the generator and, for
// combat, rolls initiative for the party and the generated enemies.
func (s *Service) Create(ctx context.Context, sessionID string, in CreateInput) (*store.Encounter, error) {
	if !store.ValidEncounterType(in.Type) {
		return nil, fmt.Errorf("encounter: create: unknown type %q: %w", in.Type, lorerr.ErrInvalidInput)
	}
	if in.Difficulty == "" {
		in.Difficulty = store.DifficultyMedium
	}
	if !store.ValidDifficulty(in.Difficulty) {
		return nil, fmt.Errorf("encounter: create: unknown difficulty %q: %w", in.Difficulty, lorerr.ErrInvalidInput)
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("encounter: create: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("encounter: create: session %q: %w", sessionID, lorerr.ErrNotFound)
	}

	campaign, err := s.store.GetCampaign(ctx, sess.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("encounter: create: %w", err)
	}
	genre := store.GenreFantasy
	if campaign != nil {
		genre = campaign.Genre
	}

	party, err := s.store.ListCharacters(ctx, sess.CampaignID, store.CharacterFilter{Type: store.CharacterPC, AliveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("encounter: create: %w", err)
	}
	partySize, partyLevel := partySnapshot(party)

	locationDesc := "An unremarkable stretch of the world."
	if in.LocationID != "" {
		loc, err := s.store.GetLocation(ctx, in.LocationID)
		if err != nil {
			return nil, fmt.Errorf("encounter: create: %w", err)
		}
		if loc != nil {
			locationDesc = loc.Name + ": " + loc.Description
		}
	}

	data, err := s.design(ctx, in, genre, partySize, partyLevel, locationDesc, sess.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("encounter: create: %w", err)
	}

	now := s.now().UTC()
	enc := &store.Encounter{
		ID:                s.newID(),
		SessionID:         sessionID,
		Name:              generator.Str(data, "name"),
		Description:       generator.Str(data, "description"),
		Type:              in.Type,
		Difficulty:        in.Difficulty,
		Status:            store.EncounterActive,
		CurrentRound:      1,
		PartyLevelAtStart: partyLevel,
		PartySizeAtStart:  partySize,
		CreatedAt:         now,
	}
	if enc.Name == "" {
		enc.Name = string(in.Type) + " encounter"
	}

	switch in.Type {
	case store.EncounterSocial:
		enc.Participants = generator.StrSlice(data, "participants")
		enc.SocialStakes = generator.Str(data, "social_stakes")
	case store.EncounterPuzzle:
		enc.PuzzleDescription = generator.Str(data, "puzzle_description")
		enc.PuzzleSolution = generator.Str(data, "puzzle_solution")
		enc.PuzzleHints = generator.StrSlice(data, "puzzle_hints")
	default:
		enc.Enemies = parseEnemies(data, s.newID)
		enc.EnvironmentalEffects = generator.StrSlice(data, "environmental_effects")
		enc.TerrainFeatures = generator.StrSlice(data, "terrain_features")
		if rewards := generator.Obj(data, "rewards"); rewards != nil {
			enc.Rewards = &store.Rewards{
				XP:   generator.Num(rewards, "xp"),
				Gold: generator.Num(rewards, "gold"),
			}
			for _, item := range generator.StrSlice(rewards, "items") {
				enc.Rewards.Items = append(enc.Rewards.Items, map[string]any{"name": item})
			}
		}
		enc.InitiativeOrder = s.rollInitiative(party, enc.Enemies)
		if len(enc.InitiativeOrder) > 0 {
			enc.InitiativeOrder[0].IsCurrent = true
		}
	}

	if err := s.store.CreateEncounter(ctx, enc); err != nil {
		return nil, fmt.Errorf("encounter: create: %w", err)
	}

	s.metrics.ActiveEncounters.Add(ctx, 1)
	s.log.InfoContext(ctx, "created encounter",
		"encounter_id", enc.ID, "session_id", sessionID, "type", in.Type, "difficulty", in.Difficulty)
	return enc, nil
}

// design renders the type-appropriate template and asks the generator for
// the encounter contents.
func (s *Service) design(ctx context.Context, in CreateInput, genre store.Genre, partySize, partyLevel int, locationDesc, campaignID string) (map[string]any, error) {
	tpl := prompt.TplCombatEncounter
	switch in.Type {
	case store.EncounterSocial:
		tpl = prompt.TplSocialEncounter
	case store.EncounterPuzzle:
		tpl = prompt.TplPuzzleEncounter
	}

	theme := in.Theme
	if theme == "" {
		theme = "appropriate to the location"
	}
	if in.Type == store.EncounterBoss {
		theme = "climactic boss battle: " + theme
	}

	kctx := knowledge.NoContextSentinel
	if s.graphs != nil {
		_ = s.graphs.WithGraph(ctx, campaignID, func(g *knowledge.Graph) error {
			var seeds []string
			for _, n := range g.Nodes() {
				if n.Importance >= 7 {
					seeds = append(seeds, n.ID)
				}
			}
			kctx = g.SubgraphForPrompt(seeds, 1, 20)
			return nil
		})
	}

	rendered, err := s.catalog.Render(tpl, map[string]string{
		"genre":                string(genre),
		"difficulty":           string(in.Difficulty),
		"party_size":           fmt.Sprintf("%d", partySize),
		"party_level":          fmt.Sprintf("%d", partyLevel),
		"location_description": locationDesc,
		"knowledge_context":    kctx,
		"theme":                theme,
	})
	if err != nil {
		return nil, err
	}
	return s.gen.GenerateStructuredWithRetry(ctx, rendered.System, rendered.User)
}

// parseEnemies converts the generator's enemy stat blocks into records,
// assigning IDs and filling defensive defaults for missing numbers.
func parseEnemies(data map[string]any, newID func() string) []store.Enemy {
	var out []store.Enemy
	for _, raw := range generator.Maps(data, "enemies") {
		e := store.Enemy{
			ID:         newID(),
			Name:       generator.Str(raw, "name"),
			Type:       generator.Str(raw, "type"),
			HPMax:      generator.Num(raw, "hp_max"),
			ArmorClass: generator.Num(raw, "armor_class"),
		}
		if e.Name == "" {
			e.Name = "Unknown Foe"
		}
		if e.HPMax <= 0 {
			e.HPMax = 10
		}
		if e.ArmorClass <= 0 {
			e.ArmorClass = 10
		}
		e.HPCurrent = e.HPMax
		if abilities := generator.Obj(raw, "abilities"); abilities != nil {
			e.Abilities = store.Abilities{
				Strength:     generator.Num(abilities, "strength"),
				Dexterity:    generator.Num(abilities, "dexterity"),
				Constitution: generator.Num(abilities, "constitution"),
				Intelligence: generator.Num(abilities, "intelligence"),
				Wisdom:       generator.Num(abilities, "wisdom"),
				Charisma:     generator.Num(abilities, "charisma"),
			}
		}
		for _, sa := range generator.Maps(raw, "special_abilities") {
			e.SpecialAbilities = append(e.SpecialAbilities, store.SpecialAbility{
				Name:        generator.Str(sa, "name"),
				Description: generator.Str(sa, "description"),
			})
		}
		out = append(out, e)
	}
	return out
}

// partySnapshot returns the party size and average level, defaulting to a
// lone level-1 adventurer so generation never divides by zero.
func partySnapshot(party []*store.Character) (size, avgLevel int) {
	if len(party) == 0 {
		return 1, 1
	}
	total := 0
	for _, c := range party {
		total += c.Level
	}
	avg := total / len(party)
	if avg < 1 {
		avg = 1
	}
	return len(party), avg
}

// rollInitiative rolls d20 per combatant, enemies adding their dexterity
// modifier. Party members roll flat; their sheet modifiers are applied by
// the players at the table. Ties keep roll order stable.
func (s *Service) rollInitiative(party []*store.Character, enemies []store.Enemy) []store.InitiativeEntry {
	var entries []store.InitiativeEntry
	for _, c := range party {
		roll, err := s.roller.Roll("1d20")
		if err != nil {
			continue
		}
		entries = append(entries, store.InitiativeEntry{
			CharacterID:    c.ID,
			Name:           c.Name,
			InitiativeRoll: roll.Total,
		})
	}
	for _, e := range enemies {
		roll, err := s.roller.Roll("1d20")
		if err != nil {
			continue
		}
		entries = append(entries, store.InitiativeEntry{
			CharacterID:    e.ID,
			Name:           e.Name,
			InitiativeRoll: roll.Total + store.Modifier(e.Abilities.Dexterity),
			IsEnemy:        true,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].InitiativeRoll > entries[j].InitiativeRoll
	})
	return entries
}

// ActionInput is one combat action taken by the current combatant.
// DiceResult carries a pre-rolled attack the player made client-side; when
// set, its total is used instead of rolling server-side.
type ActionInput struct {
	ActorID    string
	ActionType string
	TargetID   string
	Modifier   int
	DiceResult *dice.RollResult
}

// ActionResult describes what the action did and whose turn is next.
type ActionResult struct {
	Description       string            `json:"description"`
	AttackRoll        *dice.CheckResult `json:"attack_roll,omitempty"`
	DamageRoll        *dice.RollResult  `json:"damage_roll,omitempty"`
	TargetDown        bool              `json:"target_defeated,omitempty"`
	ConditionsApplied []string          `json:"conditions_applied,omitempty"`
	Victory           bool              `json:"victory"`
	CurrentRound      int               `json:"current_round"`
	NextTurn          string            `json:"next_turn,omitempty"`
	Encounter         *store.Encounter  `json:"encounter"`
}

// Action adjudicates one action inside an active combat encounter: attacks
// are rolled against the target's armor class, damage applies on a hit, the
// combat log grows, and the turn marker advances. Resolving the last enemy
// flips the encounter to resolved.
func (s *Service) Action(ctx context.Context, encounterID string, in ActionInput) (*ActionResult, error) {
	enc, err := s.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if enc.Status != store.EncounterActive {
		return nil, fmt.Errorf("encounter: action: encounter %q is %s: %w", encounterID, enc.Status, lorerr.ErrStateViolation)
	}
	if len(enc.InitiativeOrder) == 0 {
		return nil, fmt.Errorf("encounter: action: encounter %q has no initiative order: %w", encounterID, lorerr.ErrStateViolation)
	}

	current := enc.InitiativeOrder[enc.CurrentTurnIndex]
	if in.ActorID != "" && in.ActorID != current.CharacterID {
		return nil, fmt.Errorf("encounter: action: not %q's turn (current: %q): %w", in.ActorID, current.CharacterID, lorerr.ErrStateViolation)
	}

	result := &ActionResult{}
	actionType := strings.ToLower(in.ActionType)
	if actionType == "" {
		actionType = "attack"
	}

	logEntry := store.CombatLogEntry{
		Round:     enc.CurrentRound,
		Actor:     current.Name,
		ActorID:   current.CharacterID,
		Action:    actionType,
		TargetID:  in.TargetID,
		Result:    fmt.Sprintf("%s takes the %s action", current.Name, actionType),
		Timestamp: s.now().UTC(),
	}

	switch actionType {
	case "attack":
		if in.TargetID == "" {
			break
		}
		target := findEnemy(enc, in.TargetID)
		if target == nil {
			return nil, fmt.Errorf("encounter: action: target %q: %w", in.TargetID, lorerr.ErrNotFound)
		}
		if target.IsDefeated {
			return nil, fmt.Errorf("encounter: action: target %q already defeated: %w", in.TargetID, lorerr.ErrStateViolation)
		}
		logEntry.Target = target.Name

		var attack dice.CheckResult
		if in.DiceResult != nil {
			// Player pre-rolled; adjudicate against the target's armor
			// class without rolling again.
			attack = dice.CheckResult{
				Roll:    *in.DiceResult,
				DC:      target.ArmorClass,
				Success: in.DiceResult.Total >= target.ArmorClass,
			}
		} else {
			attack, err = s.roller.AttackRoll(target.ArmorClass, in.Modifier, false, false)
			if err != nil {
				return nil, fmt.Errorf("encounter: action: %w", err)
			}
		}
		result.AttackRoll = &attack

		if attack.Success {
			dmg, err := s.roller.RollDamage(enemyDamage, attack.Roll.Critical == dice.CritHit)
			if err != nil {
				return nil, fmt.Errorf("encounter: action: %w", err)
			}
			result.DamageRoll = &dmg
			target.HPCurrent -= dmg.Total
			if target.HPCurrent <= 0 {
				target.HPCurrent = 0
				target.IsDefeated = true
				result.TargetDown = true
			}
			logEntry.Damage = dmg.Total
			logEntry.Result = fmt.Sprintf("%s hits %s for %d damage (%d/%d HP)",
				current.Name, target.Name, dmg.Total, target.HPCurrent, target.HPMax)
		} else {
			logEntry.Result = fmt.Sprintf("%s misses %s (rolled %d vs AC %d)",
				current.Name, target.Name, attack.Roll.Total, target.ArmorClass)
		}
	case "dodge":
		result.ConditionsApplied = []string{"dodging"}
		logEntry.Result = fmt.Sprintf("%s takes the Dodge action, gaining defensive advantage", current.Name)
	case "dash":
		logEntry.Result = fmt.Sprintf("%s dashes, doubling their movement speed", current.Name)
	case "help":
		logEntry.Result = fmt.Sprintf("%s helps an ally, granting advantage on their next action", current.Name)
	}

	enc.CombatLog = append(enc.CombatLog, logEntry)
	result.Description = s.narrateAction(ctx, enc, current, in, logEntry.Result)

	if allEnemiesDefeated(enc) {
		result.Victory = true
		enc.Status = store.EncounterResolved
		ended := s.now().UTC()
		enc.EndedAt = &ended
		for i := range enc.InitiativeOrder {
			enc.InitiativeOrder[i].IsCurrent = false
		}
		enc.CombatLog = append(enc.CombatLog, store.CombatLogEntry{
			Round:     enc.CurrentRound,
			Action:    "victory",
			Result:    "all enemies defeated - victory!",
			Timestamp: s.now().UTC(),
		})
		s.metrics.ActiveEncounters.Add(ctx, -1)
	} else {
		advanceTurn(enc)
		result.NextTurn = enc.InitiativeOrder[enc.CurrentTurnIndex].Name
	}
	result.CurrentRound = enc.CurrentRound

	if err := s.store.UpdateEncounter(ctx, enc); err != nil {
		return nil, fmt.Errorf("encounter: action: %w", err)
	}

	s.metrics.RecordEncounterAction(ctx, actionType)
	result.Encounter = enc
	return result, nil
}

// narrateAction asks the generator for flavor text. Combat never blocks on
// the LLM: a failed call degrades to the mechanical log line.
func (s *Service) narrateAction(ctx context.Context, enc *store.Encounter, actor store.InitiativeEntry, in ActionInput, fallback string) string {
	targetName := ""
	if t := findEnemy(enc, in.TargetID); t != nil {
		targetName = t.Name
	}

	var enemies []string
	for _, e := range enc.Enemies {
		state := "fighting"
		if e.IsDefeated {
			state = "defeated"
		}
		enemies = append(enemies, fmt.Sprintf("%s (%d/%d HP, %s)", e.Name, e.HPCurrent, e.HPMax, state))
	}

	rendered, err := s.catalog.Render(prompt.TplCombatAction, map[string]string{
		"genre":         "fantasy",
		"current_round": fmt.Sprintf("%d", enc.CurrentRound),
		"enemies_state": strings.Join(enemies, "; "),
		"party_status":  "holding the line",
		"actor_name":    actor.Name,
		"action_type":   in.ActionType,
		"target_name":   targetName,
		"dice_result":   fallback,
	})
	if err != nil {
		return fallback
	}

	data, err := s.gen.GenerateStructured(ctx, rendered.System, rendered.User)
	if err != nil {
		s.log.WarnContext(ctx, "combat narration failed", "encounter_id", enc.ID, "error", err)
		return fallback
	}
	if desc := generator.Str(data, "description"); desc != "" && data[generator.KeyParseError] != true {
		return desc
	}
	return fallback
}

// advanceTurn moves the current marker to the next slot, bumping the round
// counter when the order wraps. Every slot takes a turn, defeated or not,
// so after t turns the index is always t mod len(order).
func advanceTurn(enc *store.Encounter) {
	n := len(enc.InitiativeOrder)
	if n == 0 {
		return
	}
	enc.InitiativeOrder[enc.CurrentTurnIndex].IsCurrent = false

	enc.CurrentTurnIndex++
	if enc.CurrentTurnIndex >= n {
		enc.CurrentTurnIndex = 0
		enc.CurrentRound++
	}
	enc.InitiativeOrder[enc.CurrentTurnIndex].IsCurrent = true
}

func findEnemy(enc *store.Encounter, id string) *store.Enemy {
	for i := range enc.Enemies {
		if enc.Enemies[i].ID == id {
			return &enc.Enemies[i]
		}
	}
	return nil
}

func allEnemiesDefeated(enc *store.Encounter) bool {
	if len(enc.Enemies) == 0 {
		return false
	}
	for _, e := range enc.Enemies {
		if !e.IsDefeated {
			return false
		}
	}
	return true
}

// Balance analyzes the encounter against the session's living party.
func (s *Service) Balance(ctx context.Context, encounterID string) (*BalanceReport, error) {
	enc, err := s.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	sess, err := s.store.GetSession(ctx, enc.SessionID)
	if err != nil {
		return nil, fmt.Errorf("encounter: balance: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("encounter: balance: session %q: %w", enc.SessionID, lorerr.ErrNotFound)
	}
	party, err := s.store.ListCharacters(ctx, sess.CampaignID, store.CharacterFilter{Type: store.CharacterPC, AliveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("encounter: balance: %w", err)
	}
	report := AnalyzeBalance(party, enc.Enemies)
	return &report, nil
}

// Resolve ends the encounter with the given outcome. Resolution is
// irreversible; resolving an already-ended encounter is a state violation.
func (s *Service) Resolve(ctx context.Context, encounterID string, outcome store.EncounterStatus) (*store.Encounter, error) {
	switch outcome {
	case store.EncounterResolved, store.EncounterFled, store.EncounterFailed:
	default:
		return nil, fmt.Errorf("encounter: resolve: invalid outcome %q: %w", outcome, lorerr.ErrInvalidInput)
	}

	enc, err := s.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if enc.Status != store.EncounterActive {
		return nil, fmt.Errorf("encounter: resolve: encounter %q already %s: %w", encounterID, enc.Status, lorerr.ErrStateViolation)
	}

	enc.Status = outcome
	ended := s.now().UTC()
	enc.EndedAt = &ended
	for i := range enc.InitiativeOrder {
		enc.InitiativeOrder[i].IsCurrent = false
	}
	enc.CombatLog = append(enc.CombatLog, store.CombatLogEntry{
		Round:     enc.CurrentRound,
		Action:    "resolve",
		Result:    fmt.Sprintf("encounter ended: %s", outcome),
		Timestamp: ended,
	})

	if err := s.store.UpdateEncounter(ctx, enc); err != nil {
		return nil, fmt.Errorf("encounter: resolve: %w", err)
	}

	s.metrics.ActiveEncounters.Add(ctx, -1)
	s.log.InfoContext(ctx, "resolved encounter", "encounter_id", encounterID, "outcome", outcome)
	return enc, nil
}

// Loot returns the encounter's rewards, generating them when the design
// phase produced none. Rewards can be claimed once.
func (s *Service) Loot(ctx context.Context, encounterID string) (*store.Rewards, error) {
	enc, err := s.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if enc.Status == store.EncounterActive {
		return nil, fmt.Errorf("encounter: loot: encounter %q still active: %w", encounterID, lorerr.ErrStateViolation)
	}
	if enc.RewardsDistributed {
		return nil, fmt.Errorf("encounter: loot: rewards already distributed: %w", lorerr.ErrStateViolation)
	}

	if enc.Rewards == nil {
		rendered, err := s.catalog.Render(prompt.TplLoot, map[string]string{
			"genre":          "fantasy",
			"difficulty":     string(enc.Difficulty),
			"encounter_type": string(enc.Type),
			"party_level":    fmt.Sprintf("%d", enc.PartyLevelAtStart),
		})
		if err != nil {
			return nil, fmt.Errorf("encounter: loot: %w", err)
		}
		data, err := s.gen.GenerateStructuredWithRetry(ctx, rendered.System, rendered.User)
		if err != nil {
			return nil, fmt.Errorf("encounter: loot: %w", err)
		}
		enc.Rewards = &store.Rewards{
			XP:    generator.Num(data, "xp"),
			Gold:  generator.Num(data, "gold"),
			Items: generator.Maps(data, "items"),
		}
	}

	enc.RewardsDistributed = true
	if err := s.store.UpdateEncounter(ctx, enc); err != nil {
		return nil, fmt.Errorf("encounter: loot: %w", err)
	}
	return enc.Rewards, nil
}
