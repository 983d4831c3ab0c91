// Package store defines the relational persistence boundary: the domain
// records that services read and write, and the [Store] interface the HTTP
// layer wires to a PostgreSQL implementation. A unit of work spanning
// multiple writes runs inside [Store.WithTx].
package store

import (
	"time"
)

// ─── Campaign ────────────────────────────────────────────────────────────────

// Genre is the campaign genre.
type Genre string

const (
	GenreFantasy   Genre = "fantasy"
	GenreSciFi     Genre = "sci-fi"
	GenreHorror    Genre = "horror"
	GenreSteampunk Genre = "steampunk"
)

// ValidGenre reports whether g is a known genre.
func ValidGenre(g Genre) bool {
	switch g {
	case GenreFantasy, GenreSciFi, GenreHorror, GenreSteampunk:
		return true
	}
	return false
}

// Tone is the campaign storytelling tone.
type Tone string

const (
	ToneSerious      Tone = "serious"
	ToneLighthearted Tone = "lighthearted"
	ToneDark         Tone = "dark"
	ToneEpic         Tone = "epic"
)

// ValidTone reports whether t is a known tone.
func ValidTone(t Tone) bool {
	switch t {
	case ToneSerious, ToneLighthearted, ToneDark, ToneEpic:
		return true
	}
	return false
}

// Campaign is the root of ownership: sessions, characters, locations, and
// knowledge nodes all cascade-delete with it.
type Campaign struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Genre       Genre          `json:"genre"`
	Tone        Tone           `json:"tone"`
	WorldRules  map[string]any `json:"world_rules,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CampaignCounts carries the aggregate numbers shown in campaign listings.
type CampaignCounts struct {
	Sessions   int `json:"session_count"`
	Characters int `json:"character_count"`
	Locations  int `json:"location_count"`
}

// ─── Session ─────────────────────────────────────────────────────────────────

// SessionStatus is the lifecycle state of a game session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionPaused    SessionStatus = "paused"
)

// Session is one sitting of play within a campaign. SessionNumber is
// monotonic per campaign.
type Session struct {
	ID            string        `json:"id"`
	CampaignID    string        `json:"campaign_id"`
	SessionNumber int           `json:"session_number"`
	Status        SessionStatus `json:"status"`
	Recap         string        `json:"recap,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
}

// ─── Character ───────────────────────────────────────────────────────────────

// CharacterType distinguishes player characters, NPCs, and monsters.
type CharacterType string

const (
	CharacterPC      CharacterType = "pc"
	CharacterNPC     CharacterType = "npc"
	CharacterMonster CharacterType = "monster"
)

// ValidCharacterType reports whether t is a known character type.
func ValidCharacterType(t CharacterType) bool {
	switch t {
	case CharacterPC, CharacterNPC, CharacterMonster:
		return true
	}
	return false
}

// SpeechPattern is the closed set of NPC speech styles.
type SpeechPattern string

const (
	SpeechFormal   SpeechPattern = "formal"
	SpeechCasual   SpeechPattern = "casual"
	SpeechArchaic  SpeechPattern = "archaic"
	SpeechBroken   SpeechPattern = "broken"
	SpeechEloquent SpeechPattern = "eloquent"
	SpeechGruff    SpeechPattern = "gruff"
	SpeechNervous  SpeechPattern = "nervous"
)

// Abilities is the six-score ability block. Scores are in [1, 30].
type Abilities struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// Modifier derives the standard ability modifier from a score.
func Modifier(score int) int {
	// Floor division, correct for negative intermediate values.
	m := score - 10
	if m < 0 {
		return -((-m + 1) / 2)
	}
	return m / 2
}

// Character is a PC, NPC, or monster. The NPC-only fields (Motivation,
// Secret, SpeechPattern, Disposition, NPCMemory) are zero-valued for PCs.
// Secret and Motivation must never reach player-facing payloads.
type Character struct {
	ID         string        `json:"id"`
	CampaignID string        `json:"campaign_id"`
	Name       string        `json:"name"`
	Type       CharacterType `json:"character_type"`
	Race       string        `json:"race,omitempty"`
	Class      string        `json:"class,omitempty"`
	Level      int           `json:"level"`
	Experience int           `json:"experience_points"`

	HPCurrent  int       `json:"hp_current"`
	HPMax      int       `json:"hp_max"`
	ArmorClass int       `json:"armor_class"`
	Abilities  Abilities `json:"abilities"`

	Appearance        string        `json:"appearance,omitempty"`
	Backstory         string        `json:"backstory,omitempty"`
	Occupation        string        `json:"occupation,omitempty"`
	PersonalityTraits []string      `json:"personality_traits,omitempty"`
	Motivation        string        `json:"motivation,omitempty"`
	Secret            string        `json:"secret,omitempty"`
	SpeechPattern     SpeechPattern `json:"speech_pattern,omitempty"`

	// Disposition is the NPC's attitude toward the party in [-100, 100].
	Disposition int `json:"disposition"`

	// NPCMemory is the ordered list of remembered interactions.
	NPCMemory []string `json:"npc_memory,omitempty"`

	Inventory     []map[string]any `json:"inventory,omitempty"`
	Equipment     map[string]any   `json:"equipment,omitempty"`
	Skills        []string         `json:"skills,omitempty"`
	Proficiencies []string         `json:"proficiencies,omitempty"`
	Languages     []string         `json:"languages,omitempty"`
	Conditions    []string         `json:"conditions,omitempty"`

	CurrentLocationID *string   `json:"current_location_id,omitempty"`
	IsAlive           bool      `json:"is_alive"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ClampDisposition constrains d to [-100, 100].
func ClampDisposition(d int) int {
	if d < -100 {
		return -100
	}
	if d > 100 {
		return 100
	}
	return d
}

// ─── Location ────────────────────────────────────────────────────────────────

// Connection links one location to another along a travel path.
type Connection struct {
	LocationID string `json:"location_id"`
	PathType   string `json:"path_type"`
	TravelTime int    `json:"travel_time"`
}

// PointOfInterest is a named feature inside a location.
type PointOfInterest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Secrets     string `json:"secrets,omitempty"`
}

// Location is a place in the world. ParentLocationID builds the hierarchy
// (region > city > building > room); cycles are forbidden.
type Location struct {
	ID                  string `json:"id"`
	CampaignID          string `json:"campaign_id"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	DetailedDescription string `json:"detailed_description,omitempty"`
	LocationType        string `json:"location_type,omitempty"`

	X float64 `json:"x"`
	Y float64 `json:"y"`

	// DangerLevel is in [1, 10].
	DangerLevel  int  `json:"danger_level"`
	IsDiscovered bool `json:"is_discovered"`
	IsAccessible bool `json:"is_accessible"`

	Terrain    string `json:"terrain,omitempty"`
	Climate    string `json:"climate,omitempty"`
	Atmosphere string `json:"atmosphere,omitempty"`

	PointsOfInterest     []PointOfInterest `json:"points_of_interest,omitempty"`
	Resources            []string          `json:"resources,omitempty"`
	EnvironmentalEffects []string          `json:"environmental_effects,omitempty"`
	ConnectedLocations   []Connection      `json:"connected_locations,omitempty"`

	ParentLocationID *string        `json:"parent_location_id,omitempty"`
	Properties       map[string]any `json:"properties,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ─── Story events ────────────────────────────────────────────────────────────

// EventType classifies a story event.
type EventType string

const (
	EventNarrative EventType = "narrative"
	EventDialogue  EventType = "dialogue"
	EventCombat    EventType = "combat"
	EventRoll      EventType = "roll"
	EventSystem    EventType = "system"
	EventChoice    EventType = "choice"
)

// NewEntity is an entity birth declared by a story beat. The narrative
// service turns these into knowledge graph nodes.
type NewEntity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// KnowledgeUpdate is a relationship delta declared by a story beat. Updates
// are recorded on the event for later curation; they are not applied to the
// graph automatically.
type KnowledgeUpdate struct {
	Entity       string `json:"entity"`
	Relationship string `json:"relationship"`
	Target       string `json:"target"`
}

// StoryEvent is one beat of the session's story feed. SequenceOrder is
// 1-based and strictly increasing within a session.
type StoryEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	EventType EventType `json:"event_type"`
	Content   string    `json:"content"`

	PlayerAction string   `json:"player_action,omitempty"`
	Choices      []string `json:"choices,omitempty"`
	ChosenIndex  *int     `json:"chosen_index,omitempty"`
	Mood         string   `json:"mood,omitempty"`
	Speaker      string   `json:"speaker,omitempty"`

	DiceRolls        []map[string]any  `json:"dice_rolls,omitempty"`
	KnowledgeUpdates []KnowledgeUpdate `json:"knowledge_updates,omitempty"`
	NewEntities      []NewEntity       `json:"new_entities,omitempty"`
	XPAwarded        int               `json:"xp_awarded,omitempty"`
	ItemsAwarded     []map[string]any  `json:"items_awarded,omitempty"`

	// ParseError records that the generator degraded to its sentinel
	// output for this beat.
	ParseError bool `json:"parse_error,omitempty"`

	SequenceOrder int       `json:"sequence_order"`
	LocationID    *string   `json:"location_id,omitempty"`
	EncounterID   *string   `json:"encounter_id,omitempty"`
	CharacterIDs  []string  `json:"character_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ─── Encounters ──────────────────────────────────────────────────────────────

// EncounterType classifies an encounter.
type EncounterType string

const (
	EncounterCombat      EncounterType = "combat"
	EncounterSocial      EncounterType = "social"
	EncounterPuzzle      EncounterType = "puzzle"
	EncounterExploration EncounterType = "exploration"
	EncounterBoss        EncounterType = "boss"
)

// ValidEncounterType reports whether t is a known encounter type.
func ValidEncounterType(t EncounterType) bool {
	switch t {
	case EncounterCombat, EncounterSocial, EncounterPuzzle, EncounterExploration, EncounterBoss:
		return true
	}
	return false
}

// Difficulty is the encounter difficulty band.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyDeadly Difficulty = "deadly"
)

// ValidDifficulty reports whether d is a known difficulty.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyDeadly:
		return true
	}
	return false
}

// EncounterStatus is the lifecycle state of an encounter. The transition to
// resolved is irreversible.
type EncounterStatus string

const (
	EncounterActive   EncounterStatus = "active"
	EncounterResolved EncounterStatus = "resolved"
	EncounterFled     EncounterStatus = "fled"
	EncounterFailed   EncounterStatus = "failed"
)

// SpecialAbility is a named enemy ability.
type SpecialAbility struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Attack is one enemy attack option.
type Attack struct {
	Name       string `json:"name"`
	Damage     string `json:"damage"`
	DamageType string `json:"damage_type,omitempty"`
	ToHit      int    `json:"to_hit"`
}

// Enemy is one combatant on the opposing side.
type Enemy struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Type             string           `json:"type,omitempty"`
	HPCurrent        int              `json:"hp_current"`
	HPMax            int              `json:"hp_max"`
	ArmorClass       int              `json:"armor_class"`
	Speed            int              `json:"speed,omitempty"`
	Abilities        Abilities        `json:"abilities"`
	Attacks          []Attack         `json:"attacks,omitempty"`
	SpecialAbilities []SpecialAbility `json:"special_abilities,omitempty"`
	IsDefeated       bool             `json:"is_defeated"`
}

// InitiativeEntry is one slot in the turn order.
type InitiativeEntry struct {
	CharacterID    string `json:"character_id"`
	Name           string `json:"name"`
	InitiativeRoll int    `json:"initiative_roll"`
	IsEnemy        bool   `json:"is_enemy"`
	IsCurrent      bool   `json:"is_current"`
}

// CombatLogEntry is one append-only record in an encounter's combat log.
type CombatLogEntry struct {
	Round     int       `json:"round"`
	Actor     string    `json:"actor"`
	ActorID   string    `json:"actor_id,omitempty"`
	Action    string    `json:"action"`
	Target    string    `json:"target,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	Result    string    `json:"result"`
	Damage    int       `json:"damage,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Rewards is the loot attached to an encounter.
type Rewards struct {
	XP    int              `json:"xp"`
	Gold  int              `json:"gold"`
	Items []map[string]any `json:"items,omitempty"`
}

// Encounter is a combat, social, or puzzle challenge within a session.
//
// Invariant while Status is active: exactly one InitiativeOrder entry has
// IsCurrent=true and CurrentTurnIndex is its position.
type Encounter struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Type        EncounterType   `json:"encounter_type"`
	Difficulty  Difficulty      `json:"difficulty"`
	Status      EncounterStatus `json:"status"`

	CurrentRound     int               `json:"current_round"`
	CurrentTurnIndex int               `json:"current_turn_index"`
	Enemies          []Enemy           `json:"enemies,omitempty"`
	InitiativeOrder  []InitiativeEntry `json:"initiative_order,omitempty"`
	CombatLog        []CombatLogEntry  `json:"combat_log,omitempty"`

	Participants       []string       `json:"participants,omitempty"`
	SocialStakes       string         `json:"social_stakes,omitempty"`
	DispositionChanges map[string]int `json:"disposition_changes,omitempty"`

	PuzzleDescription string   `json:"puzzle_description,omitempty"`
	PuzzleSolution    string   `json:"puzzle_solution,omitempty"`
	PuzzleHints       []string `json:"puzzle_hints,omitempty"`
	HintsRevealed     int      `json:"hints_revealed,omitempty"`

	EnvironmentalEffects []string `json:"environmental_effects,omitempty"`
	TerrainFeatures      []string `json:"terrain_features,omitempty"`

	Rewards            *Rewards `json:"rewards,omitempty"`
	RewardsDistributed bool     `json:"rewards_distributed"`

	PartyLevelAtStart int `json:"party_level_at_start,omitempty"`
	PartySizeAtStart  int `json:"party_size_at_start,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}
