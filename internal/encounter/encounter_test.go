package encounter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lorekeeperhq/lorekeeper/internal/dice"
	"github.com/lorekeeperhq/lorekeeper/internal/encounter"
	"github.com/lorekeeperhq/lorekeeper/internal/generator"
	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
	"github.com/lorekeeperhq/lorekeeper/internal/prompt"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
	"github.com/lorekeeperhq/lorekeeper/internal/store/storetest"
	"github.com/lorekeeperhq/lorekeeper/pkg/provider/llm"
	llmmock "github.com/lorekeeperhq/lorekeeper/pkg/provider/llm/mock"
)

// seqSource feeds predetermined values to the dice roller. Values are what
// IntN returns, so a die face of F needs the value F-1.
type seqSource struct {
	vals []int
	i    int
}

func (s *seqSource) IntN(int) int {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func newService(t *testing.T, st *storetest.Store, response string, rolls ...int) *encounter.Service {
	t.Helper()
	provider := &llmmock.Provider{}
	if response != "" {
		provider.CompleteResponse = &llm.CompletionResponse{Content: response}
	}
	if len(rolls) == 0 {
		rolls = []int{9}
	}
	counter := 0
	return encounter.NewService(encounter.Config{
		Store:     st,
		Generator: generator.New(provider, generator.Config{MaxRetries: 0}),
		Catalog:   prompt.NewCatalog(),
		Graphs:    knowledge.NewRegistry(knowledge.RegistryConfig{Persister: st}),
		Roller:    dice.New(&seqSource{vals: rolls}),
		Clock:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		IDs: func() string {
			counter++
			return "gen-" + string(rune('0'+counter))
		},
	})
}

func seedSession(t *testing.T, st *storetest.Store) {
	t.Helper()
	ctx := context.Background()
	if err := st.CreateCampaign(ctx, &store.Campaign{ID: "camp-1", Name: "Vale", Genre: store.GenreFantasy, Tone: store.ToneEpic}); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if err := st.CreateSession(ctx, &store.Session{ID: "sess-1", CampaignID: "camp-1", SessionNumber: 1, Status: store.SessionActive}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
}

func seedParty(t *testing.T, st *storetest.Store, members ...*store.Character) {
	t.Helper()
	for _, c := range members {
		if err := st.CreateCharacter(context.Background(), c); err != nil {
			t.Fatalf("CreateCharacter %s: %v", c.ID, err)
		}
	}
}

func TestAnalyzeBalance(t *testing.T) {
	t.Parallel()

	party := []*store.Character{
		{ID: "pc-1", Level: 3, HPCurrent: 20},
		{ID: "pc-2", Level: 3, HPCurrent: 20},
	}
	// party power: 40*0.5 + 3*2*10 = 80

	tests := []struct {
		name       string
		enemies    []store.Enemy
		wantDiff   store.Difficulty
		wantChance float64
		wantRounds int
	}{
		{
			name:       "easy",
			enemies:    []store.Enemy{{HPMax: 20, ArmorClass: 12}}, // power 34, ratio 0.425
			wantDiff:   store.DifficultyEasy,
			wantChance: 0.95,
			wantRounds: 2, // 20 / 8
		},
		{
			name: "medium",
			enemies: []store.Enemy{
				{HPMax: 30, ArmorClass: 14}, // 43
				{HPMax: 20, ArmorClass: 12}, // 34 -> total 77, ratio 0.9625
			},
			wantDiff:   store.DifficultyMedium,
			wantChance: 0.85,
			wantRounds: 6, // 50 / 8
		},
		{
			name: "hard",
			enemies: []store.Enemy{{
				HPMax: 80, ArmorClass: 16,
				SpecialAbilities: []store.SpecialAbility{{Name: "Breath"}, {Name: "Tail"}},
			}}, // 40+32+10 = 82, ratio 1.025
			wantDiff:   store.DifficultyHard,
			wantChance: 0.70,
			wantRounds: 10,
		},
		{
			name: "deadly",
			enemies: []store.Enemy{{
				HPMax: 150, ArmorClass: 18,
				SpecialAbilities: []store.SpecialAbility{{Name: "Breath"}, {Name: "Frightful Presence"}},
			}}, // 75+36+10 = 121, ratio 1.5125
			wantDiff:   store.DifficultyDeadly,
			wantChance: 0.50,
			wantRounds: 18, // 150 / 8
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encounter.AnalyzeBalance(party, tt.enemies)
			if got.Difficulty != tt.wantDiff {
				t.Errorf("difficulty: want %s, got %s (ratio %v)", tt.wantDiff, got.Difficulty, got.PowerRatio)
			}
			if got.SurvivalChance != tt.wantChance {
				t.Errorf("survival: want %v, got %v", tt.wantChance, got.SurvivalChance)
			}
			if got.EstimatedRounds != tt.wantRounds {
				t.Errorf("rounds: want %d, got %d", tt.wantRounds, got.EstimatedRounds)
			}
		})
	}
}

func TestCreateCombatRollsInitiative(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedSession(t, st)
	seedParty(t, st, &store.Character{
		ID: "pc-1", CampaignID: "camp-1", Name: "Ariadne", Type: store.CharacterPC,
		Level: 3, HPCurrent: 24, HPMax: 24, IsAlive: true,
	})

	// PC rolls 10 flat; the enemy rolls 10 and adds its +4 dexterity modifier.
	svc := newService(t, st, `{
		"name": "Ambush at the Ford",
		"description": "Bandits spring from the reeds.",
		"enemies": [
			{"name": "Bandit Captain", "type": "humanoid", "hp_max": 30, "armor_class": 14,
			 "abilities": {"strength": 12, "dexterity": 18, "constitution": 12, "intelligence": 10, "wisdom": 10, "charisma": 12},
			 "special_abilities": [{"name": "Parry", "description": "Adds 2 to AC against one attack"}]},
			{"name": "Bandit", "type": "humanoid", "hp_max": 11, "armor_class": 12,
			 "abilities": {"strength": 11, "dexterity": 12, "constitution": 12, "intelligence": 10, "wisdom": 10, "charisma": 10}}
		],
		"rewards": {"xp": 450, "gold": 120, "items": ["Captain's signet ring"]}
	}`, 9, 9, 4)

	enc, err := svc.Create(context.Background(), "sess-1", encounter.CreateInput{
		Type: store.EncounterCombat, Difficulty: store.DifficultyMedium, Theme: "river ambush",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if enc.Status != store.EncounterActive || enc.CurrentRound != 1 {
		t.Errorf("lifecycle: status %s round %d", enc.Status, enc.CurrentRound)
	}
	if len(enc.Enemies) != 2 {
		t.Fatalf("want 2 enemies, got %d", len(enc.Enemies))
	}
	if enc.Enemies[0].HPCurrent != enc.Enemies[0].HPMax {
		t.Errorf("enemy not at full hp: %+v", enc.Enemies[0])
	}
	if enc.Rewards == nil || enc.Rewards.XP != 450 {
		t.Errorf("rewards not captured: %+v", enc.Rewards)
	}
	if enc.PartySizeAtStart != 1 || enc.PartyLevelAtStart != 3 {
		t.Errorf("party snapshot: size %d level %d", enc.PartySizeAtStart, enc.PartyLevelAtStart)
	}

	// Captain (10+4=14) > PC (10) > Bandit (5+1=6).
	order := enc.InitiativeOrder
	if len(order) != 3 {
		t.Fatalf("want 3 initiative entries, got %d", len(order))
	}
	if order[0].Name != "Bandit Captain" || order[0].InitiativeRoll != 14 || !order[0].IsEnemy {
		t.Errorf("first slot: %+v", order[0])
	}
	if order[1].Name != "Ariadne" || order[1].InitiativeRoll != 10 {
		t.Errorf("second slot: %+v", order[1])
	}
	if !order[0].IsCurrent || order[1].IsCurrent || order[2].IsCurrent {
		t.Error("exactly the first slot should be current")
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedSession(t, st)
	svc := newService(t, st, `{}`)

	if _, err := svc.Create(context.Background(), "sess-1", encounter.CreateInput{Type: "duel"}); !errors.Is(err, lorerr.ErrInvalidInput) {
		t.Errorf("unknown type: want ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "nope", encounter.CreateInput{Type: store.EncounterCombat}); !errors.Is(err, lorerr.ErrNotFound) {
		t.Errorf("missing session: want ErrNotFound, got %v", err)
	}
}

// active two-sided encounter: the PC acts first against a single enemy.
func seedCombat(t *testing.T, st *storetest.Store, enemyHP int) *store.Encounter {
	t.Helper()
	seedSession(t, st)
	enc := &store.Encounter{
		ID: "enc-1", SessionID: "sess-1", Name: "Skirmish",
		Type: store.EncounterCombat, Difficulty: store.DifficultyMedium,
		Status: store.EncounterActive, CurrentRound: 1,
		Enemies: []store.Enemy{{ID: "en-1", Name: "Ghoul", HPCurrent: enemyHP, HPMax: enemyHP, ArmorClass: 10}},
		InitiativeOrder: []store.InitiativeEntry{
			{CharacterID: "pc-1", Name: "Ariadne", InitiativeRoll: 18, IsCurrent: true},
			{CharacterID: "en-1", Name: "Ghoul", InitiativeRoll: 7, IsEnemy: true},
		},
	}
	if err := st.CreateEncounter(context.Background(), enc); err != nil {
		t.Fatalf("CreateEncounter: %v", err)
	}
	return enc
}

func TestActionHitAndVictory(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCombat(t, st, 5)

	// Attack d20 -> 15 vs AC 10 (hit), damage 1d8 -> 6, +2 = 8.
	svc := newService(t, st, `{"description": "Steel flashes and the ghoul crumples."}`, 14, 5)

	res, err := svc.Action(context.Background(), "enc-1", encounter.ActionInput{
		ActorID: "pc-1", ActionType: "attack", TargetID: "en-1",
	})
	if err != nil {
		t.Fatalf("Action: %v", err)
	}
	if !res.AttackRoll.Success {
		t.Fatalf("attack should hit: %+v", res.AttackRoll)
	}
	if res.DamageRoll.Total != 8 {
		t.Errorf("damage: want 8, got %d", res.DamageRoll.Total)
	}
	if !res.TargetDown || !res.Victory {
		t.Errorf("want defeated target and victory: %+v", res)
	}
	if res.Description != "Steel flashes and the ghoul crumples." {
		t.Errorf("narration not used: %q", res.Description)
	}

	enc, _ := st.GetEncounter(context.Background(), "enc-1")
	if enc.Status != store.EncounterResolved || enc.EndedAt == nil {
		t.Errorf("victory should resolve: status %s ended %v", enc.Status, enc.EndedAt)
	}
	for _, e := range enc.InitiativeOrder {
		if e.IsCurrent {
			t.Errorf("no slot should be current after resolution: %+v", e)
		}
	}
	if len(enc.CombatLog) == 0 {
		t.Error("combat log empty")
	}
}

func TestActionMissAdvancesAndWraps(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCombat(t, st, 50)

	// Both actions roll 3 vs AC 10: misses all around.
	svc := newService(t, st, `{"description": "Blades whistle through empty air."}`, 2)

	res, err := svc.Action(context.Background(), "enc-1", encounter.ActionInput{
		ActorID: "pc-1", ActionType: "attack", TargetID: "en-1",
	})
	if err != nil {
		t.Fatalf("Action 1: %v", err)
	}
	if res.Victory {
		t.Fatal("no victory expected")
	}
	if res.NextTurn != "Ghoul" || res.CurrentRound != 1 {
		t.Errorf("after pc turn: next %q round %d", res.NextTurn, res.CurrentRound)
	}

	// The ghoul acts; the order wraps and the round advances.
	res, err = svc.Action(context.Background(), "enc-1", encounter.ActionInput{ActorID: "en-1", ActionType: "snarl"})
	if err != nil {
		t.Fatalf("Action 2: %v", err)
	}
	if res.NextTurn != "Ariadne" || res.CurrentRound != 2 {
		t.Errorf("after wrap: next %q round %d", res.NextTurn, res.CurrentRound)
	}

	enc, _ := st.GetEncounter(context.Background(), "enc-1")
	currents := 0
	for _, e := range enc.InitiativeOrder {
		if e.IsCurrent {
			currents++
		}
	}
	if currents != 1 {
		t.Errorf("exactly one current slot required, got %d", currents)
	}
}

func TestActionGuards(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCombat(t, st, 50)
	svc := newService(t, st, `{"description": "x"}`, 2)

	if _, err := svc.Action(context.Background(), "enc-1", encounter.ActionInput{ActorID: "en-1"}); !errors.Is(err, lorerr.ErrStateViolation) {
		t.Errorf("acting out of turn: want ErrStateViolation, got %v", err)
	}
	if _, err := svc.Action(context.Background(), "enc-1", encounter.ActionInput{ActorID: "pc-1", TargetID: "en-404"}); !errors.Is(err, lorerr.ErrNotFound) {
		t.Errorf("unknown target: want ErrNotFound, got %v", err)
	}
	if _, err := svc.Action(context.Background(), "enc-404", encounter.ActionInput{}); !errors.Is(err, lorerr.ErrNotFound) {
		t.Errorf("unknown encounter: want ErrNotFound, got %v", err)
	}
}

func TestResolveIsIrreversible(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCombat(t, st, 50)
	svc := newService(t, st, "")

	enc, err := svc.Resolve(context.Background(), "enc-1", store.EncounterFled)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if enc.Status != store.EncounterFled || enc.EndedAt == nil {
		t.Errorf("resolve result: %+v", enc)
	}

	if _, err := svc.Resolve(context.Background(), "enc-1", store.EncounterResolved); !errors.Is(err, lorerr.ErrStateViolation) {
		t.Errorf("second resolve: want ErrStateViolation, got %v", err)
	}
	if _, err := svc.Action(context.Background(), "enc-1", encounter.ActionInput{}); !errors.Is(err, lorerr.ErrStateViolation) {
		t.Errorf("action on ended encounter: want ErrStateViolation, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "enc-1", "active"); !errors.Is(err, lorerr.ErrInvalidInput) {
		t.Errorf("bad outcome: want ErrInvalidInput, got %v", err)
	}
}

func TestLoot(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	enc := seedCombat(t, st, 50)
	svc := newService(t, st, `{"xp": 300, "gold": 75, "items": [{"name": "Ghoul fang", "type": "misc", "rarity": "common"}]}`)

	if _, err := svc.Loot(context.Background(), enc.ID); !errors.Is(err, lorerr.ErrStateViolation) {
		t.Fatalf("loot while active: want ErrStateViolation, got %v", err)
	}

	if _, err := svc.Resolve(context.Background(), enc.ID, store.EncounterResolved); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	rewards, err := svc.Loot(context.Background(), enc.ID)
	if err != nil {
		t.Fatalf("Loot: %v", err)
	}
	if rewards.XP != 300 || rewards.Gold != 75 || len(rewards.Items) != 1 {
		t.Errorf("rewards: %+v", rewards)
	}

	if _, err := svc.Loot(context.Background(), enc.ID); !errors.Is(err, lorerr.ErrStateViolation) {
		t.Errorf("double loot: want ErrStateViolation, got %v", err)
	}
}

func TestActionUsesPreRolledDice(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCombat(t, st, 50)

	// If the service rolled the attack itself the seqSource would yield a 3
	// and miss; the pre-rolled 17 must be what gets adjudicated. The single
	// value then feeds the damage roll: 1d8 -> 3, +2 = 5.
	svc := newService(t, st, `{"description": "The blade bites deep."}`, 2)

	res, err := svc.Action(context.Background(), "enc-1", encounter.ActionInput{
		ActorID: "pc-1", ActionType: "attack", TargetID: "en-1",
		DiceResult: &dice.RollResult{Notation: "1d20+5", Rolls: []int{12}, Modifier: 5, Total: 17},
	})
	if err != nil {
		t.Fatalf("Action: %v", err)
	}
	if !res.AttackRoll.Success || res.AttackRoll.Roll.Total != 17 {
		t.Fatalf("pre-rolled attack: %+v", res.AttackRoll)
	}
	if res.AttackRoll.DC != 10 {
		t.Errorf("dc should be the target's armor class, got %d", res.AttackRoll.DC)
	}
	if res.DamageRoll == nil || res.DamageRoll.Total != 5 {
		t.Errorf("damage: %+v, want total 5", res.DamageRoll)
	}

	// A pre-rolled total under the armor class misses without damage.
	res, err = svc.Action(context.Background(), "enc-1", encounter.ActionInput{
		ActorID: "en-1", ActionType: "attack", TargetID: "en-1",
	})
	if err != nil {
		t.Fatalf("Action (enemy turn): %v", err)
	}
	res, err = svc.Action(context.Background(), "enc-1", encounter.ActionInput{
		ActorID: "pc-1", ActionType: "attack", TargetID: "en-1",
		DiceResult: &dice.RollResult{Notation: "1d20", Rolls: []int{4}, Total: 4},
	})
	if err != nil {
		t.Fatalf("Action (miss): %v", err)
	}
	if res.AttackRoll.Success || res.DamageRoll != nil {
		t.Errorf("low pre-roll should miss cleanly: %+v", res)
	}
}

func TestActionAppendsStructuredLogEntries(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCombat(t, st, 50)

	// Attack d20 -> 15 vs AC 10 (hit), damage 1d8 -> 6, +2 = 8.
	svc := newService(t, st, `{"description": "x"}`, 14, 5)

	if _, err := svc.Action(context.Background(), "enc-1", encounter.ActionInput{
		ActorID: "pc-1", ActionType: "attack", TargetID: "en-1",
	}); err != nil {
		t.Fatalf("Action: %v", err)
	}

	enc, _ := st.GetEncounter(context.Background(), "enc-1")
	if len(enc.CombatLog) != 1 {
		t.Fatalf("combat log: %+v, want one entry", enc.CombatLog)
	}
	entry := enc.CombatLog[0]
	if entry.Round != 1 || entry.Actor != "Ariadne" || entry.ActorID != "pc-1" {
		t.Errorf("actor fields: %+v", entry)
	}
	if entry.Action != "attack" || entry.Target != "Ghoul" || entry.TargetID != "en-1" {
		t.Errorf("action fields: %+v", entry)
	}
	if entry.Damage != 8 || entry.Timestamp.IsZero() {
		t.Errorf("damage/timestamp: %+v", entry)
	}
	if entry.Result != "Ariadne hits Ghoul for 8 damage (42/50 HP)" {
		t.Errorf("result line: %q", entry.Result)
	}
}

func TestActionDodgeAppliesCondition(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCombat(t, st, 50)
	svc := newService(t, st, "")

	res, err := svc.Action(context.Background(), "enc-1", encounter.ActionInput{ActorID: "pc-1", ActionType: "dodge"})
	if err != nil {
		t.Fatalf("Action: %v", err)
	}
	if len(res.ConditionsApplied) != 1 || res.ConditionsApplied[0] != "dodging" {
		t.Errorf("conditions: %v, want [dodging]", res.ConditionsApplied)
	}
	if res.Description != "Ariadne takes the Dodge action, gaining defensive advantage" {
		t.Errorf("description: %q", res.Description)
	}
}

func TestTurnOrderIncludesDefeatedSlots(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedSession(t, st)
	enc := &store.Encounter{
		ID: "enc-1", SessionID: "sess-1", Name: "Crypt Brawl",
		Type: store.EncounterCombat, Difficulty: store.DifficultyMedium,
		Status: store.EncounterActive, CurrentRound: 1,
		Enemies: []store.Enemy{
			{ID: "en-1", Name: "Ghoul", HPCurrent: 0, HPMax: 20, ArmorClass: 10, IsDefeated: true},
			{ID: "en-2", Name: "Wight", HPCurrent: 30, HPMax: 30, ArmorClass: 12},
		},
		InitiativeOrder: []store.InitiativeEntry{
			{CharacterID: "pc-1", Name: "Ariadne", InitiativeRoll: 19, IsCurrent: true},
			{CharacterID: "en-1", Name: "Ghoul", InitiativeRoll: 15, IsEnemy: true},
			{CharacterID: "pc-2", Name: "Bram", InitiativeRoll: 11},
			{CharacterID: "en-2", Name: "Wight", InitiativeRoll: 7, IsEnemy: true},
		},
	}
	if err := st.CreateEncounter(context.Background(), enc); err != nil {
		t.Fatalf("CreateEncounter: %v", err)
	}
	svc := newService(t, st, "")

	// A defeated combatant still occupies its slot, so four dodges march
	// straight through the order and land on round 2, slot 0.
	wantNext := []string{"Ghoul", "Bram", "Wight", "Ariadne"}
	actors := []string{"pc-1", "en-1", "pc-2", "en-2"}
	for i, actor := range actors {
		res, err := svc.Action(context.Background(), "enc-1", encounter.ActionInput{ActorID: actor, ActionType: "dodge"})
		if err != nil {
			t.Fatalf("Action %d: %v", i+1, err)
		}
		if res.NextTurn != wantNext[i] {
			t.Errorf("after action %d: next = %q, want %q", i+1, res.NextTurn, wantNext[i])
		}
	}

	got, _ := st.GetEncounter(context.Background(), "enc-1")
	if got.CurrentRound != 2 || got.CurrentTurnIndex != 0 {
		t.Errorf("after full round: round %d index %d, want round 2 index 0", got.CurrentRound, got.CurrentTurnIndex)
	}
	if !got.InitiativeOrder[0].IsCurrent {
		t.Error("slot 0 should be current again")
	}
	if len(got.CombatLog) != 4 {
		t.Errorf("combat log entries: %d, want 4", len(got.CombatLog))
	}
}

func TestAnalyzeBalanceRecommendations(t *testing.T) {
	t.Parallel()

	party := []*store.Character{
		{ID: "pc-1", Level: 3, HPCurrent: 20},
		{ID: "pc-2", Level: 3, HPCurrent: 20},
	}

	// Deadly and drawn out: over-strength enemies and a big HP pool.
	rep := encounter.AnalyzeBalance(party, []store.Enemy{{
		HPMax: 150, ArmorClass: 18,
		SpecialAbilities: []store.SpecialAbility{{Name: "Breath"}, {Name: "Frightful Presence"}},
	}})
	wantHarder := []string{
		"Consider removing an enemy or reducing HP",
		"Combat may be too long - consider reducing enemy HP",
	}
	if len(rep.Recommendations) != len(wantHarder) {
		t.Fatalf("recommendations: %v", rep.Recommendations)
	}
	for i, want := range wantHarder {
		if rep.Recommendations[i] != want {
			t.Errorf("recommendation %d: %q, want %q", i, rep.Recommendations[i], want)
		}
	}

	// A pushover ends in under two rounds.
	rep = encounter.AnalyzeBalance(party, []store.Enemy{{HPMax: 8, ArmorClass: 10}})
	wantEasier := []string{
		"Consider adding enemies or increasing difficulty",
		"Combat may be too short - consider adding enemies",
	}
	if len(rep.Recommendations) != len(wantEasier) {
		t.Fatalf("recommendations: %v", rep.Recommendations)
	}
	for i, want := range wantEasier {
		if rep.Recommendations[i] != want {
			t.Errorf("recommendation %d: %q, want %q", i, rep.Recommendations[i], want)
		}
	}

	// Balanced fights carry no advice.
	rep = encounter.AnalyzeBalance(party, []store.Enemy{
		{HPMax: 30, ArmorClass: 14},
		{HPMax: 20, ArmorClass: 12},
	})
	if len(rep.Recommendations) != 0 {
		t.Errorf("balanced fight recommendations: %v", rep.Recommendations)
	}
}
