package npc_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lorekeeperhq/lorekeeper/internal/generator"
	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
	"github.com/lorekeeperhq/lorekeeper/internal/npc"
	"github.com/lorekeeperhq/lorekeeper/internal/prompt"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
	"github.com/lorekeeperhq/lorekeeper/internal/store/storetest"
	"github.com/lorekeeperhq/lorekeeper/pkg/provider/llm"
	llmmock "github.com/lorekeeperhq/lorekeeper/pkg/provider/llm/mock"
)

func newService(t *testing.T, st *storetest.Store, response string) (*npc.Service, *llmmock.Provider) {
	t.Helper()
	provider := &llmmock.Provider{}
	if response != "" {
		provider.CompleteResponse = &llm.CompletionResponse{Content: response}
	}
	gen := generator.New(provider, generator.Config{MaxRetries: 0})
	graphs := knowledge.NewRegistry(knowledge.RegistryConfig{Persister: st})

	counter := 0
	svc := npc.NewService(npc.Config{
		Store:     st,
		Generator: gen,
		Catalog:   prompt.NewCatalog(),
		Graphs:    graphs,
		Clock:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		IDs: func() string {
			counter++
			return "npc-gen-" + string(rune('0'+counter))
		},
	})
	return svc, provider
}

func seedCampaign(t *testing.T, st *storetest.Store) *store.Campaign {
	t.Helper()
	c := &store.Campaign{ID: "camp-1", Name: "The Shattered Vale", Genre: store.GenreFantasy, Tone: store.ToneDark}
	if err := st.CreateCampaign(context.Background(), c); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	return c
}

func TestDemeanor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		disposition int
		want        string
	}{
		{100, "friendly"},
		{50, "friendly"},
		{49, "warm"},
		{20, "warm"},
		{19, "neutral"},
		{0, "neutral"},
		{-20, "neutral"},
		{-21, "cold"},
		{-50, "cold"},
		{-51, "hostile"},
		{-100, "hostile"},
	}
	for _, tt := range tests {
		if got := npc.Demeanor(tt.disposition); got != tt.want {
			t.Errorf("Demeanor(%d) = %q, want %q", tt.disposition, got, tt.want)
		}
	}
}

func TestGenerateCreatesNPC(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCampaign(t, st)
	loc := &store.Location{ID: "loc-1", CampaignID: "camp-1", Name: "The Gilded Flagon"}
	if err := st.CreateLocation(context.Background(), loc); err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}

	svc, _ := newService(t, st, `{
		"name": "Grimjaw",
		"race": "dwarf",
		"occupation": "blacksmith",
		"personality_traits": ["gruff", "loyal"],
		"motivation": "pay off an old debt",
		"secret": "smuggles weapons for the resistance",
		"speech_pattern": "gruff",
		"appearance": "soot-streaked beard",
		"backstory": "Once forged blades for the king.",
		"initial_disposition": 80
	}`)

	got, err := svc.Generate(context.Background(), "camp-1", npc.GenerateInput{
		Role: "blacksmith", LocationID: "loc-1", PersonalityHints: []string{"gruff"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Name != "Grimjaw" || got.Type != store.CharacterNPC {
		t.Errorf("npc basics wrong: %+v", got)
	}
	if got.Disposition != 50 {
		t.Errorf("disposition not clamped to 50: %d", got.Disposition)
	}
	if got.CurrentLocationID == nil || *got.CurrentLocationID != "loc-1" {
		t.Errorf("location reference missing: %v", got.CurrentLocationID)
	}
	if got.Secret == "" || got.Motivation == "" {
		t.Error("dm-only fields not captured")
	}

	persisted, err := st.GetCharacter(context.Background(), got.ID)
	if err != nil || persisted == nil {
		t.Fatalf("npc not persisted: %v %v", persisted, err)
	}
	if st.SavedGraphs["camp-1"] == 0 {
		t.Error("knowledge graph not saved after generation")
	}
}

func TestGenerateUnknownCampaign(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, storetest.New(), `{"name":"X"}`)
	_, err := svc.Generate(context.Background(), "nope", npc.GenerateInput{Role: "guard"})
	if !errors.Is(err, lorerr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDialogueAppliesDispositionAndMemory(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCampaign(t, st)
	ch := &store.Character{
		ID: "npc-1", CampaignID: "camp-1", Name: "Grimjaw", Type: store.CharacterNPC,
		Disposition: 10, SpeechPattern: store.SpeechGruff, IsAlive: true,
	}
	if err := st.CreateCharacter(context.Background(), ch); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	svc, provider := newService(t, st, `{
		"dialogue": "\"What do ye want?\"",
		"mood": "suspicious",
		"disposition_change": 35,
		"internal_thoughts": "They smell of trouble."
	}`)

	longMessage := strings.Repeat("a", 150)
	got, err := svc.Dialogue(context.Background(), "npc-1", npc.DialogueInput{Message: longMessage})
	if err != nil {
		t.Fatalf("Dialogue: %v", err)
	}

	// Delta clamps to +20 on top of the starting 10.
	if got.DispositionChange != 20 || got.Disposition != 30 {
		t.Errorf("disposition: change %d final %d, want 20 and 30", got.DispositionChange, got.Disposition)
	}
	if got.Mood != "suspicious" || got.Dialogue == "" {
		t.Errorf("dialogue payload wrong: %+v", got)
	}

	persisted, _ := st.GetCharacter(context.Background(), "npc-1")
	if persisted.Disposition != 30 {
		t.Errorf("disposition not persisted: %d", persisted.Disposition)
	}
	if len(persisted.NPCMemory) != 1 {
		t.Fatalf("want 1 memory entry, got %d", len(persisted.NPCMemory))
	}
	want := "Player said: '" + strings.Repeat("a", 100) + "' - Responded with suspicious mood"
	if persisted.NPCMemory[0] != want {
		t.Errorf("memory entry:\n got %q\nwant %q", persisted.NPCMemory[0], want)
	}

	// Dialogue runs hot.
	if len(provider.CompleteCalls) != 1 {
		t.Fatalf("want 1 llm call, got %d", len(provider.CompleteCalls))
	}
	if temp := provider.CompleteCalls[0].Req.Temperature; temp != 0.9 {
		t.Errorf("dialogue temperature: want 0.9, got %v", temp)
	}
}

func TestDialogueRejectsNonNPC(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCampaign(t, st)
	pc := &store.Character{ID: "pc-1", CampaignID: "camp-1", Name: "Ariadne", Type: store.CharacterPC, IsAlive: true}
	if err := st.CreateCharacter(context.Background(), pc); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	svc, _ := newService(t, st, `{"dialogue":"hi"}`)

	if _, err := svc.Dialogue(context.Background(), "pc-1", npc.DialogueInput{Message: "hello"}); !errors.Is(err, lorerr.ErrStateViolation) {
		t.Errorf("dialogue with pc: want ErrStateViolation, got %v", err)
	}
	if _, err := svc.Dialogue(context.Background(), "npc-1", npc.DialogueInput{Message: "hello"}); !errors.Is(err, lorerr.ErrNotFound) {
		t.Errorf("dialogue with missing npc: want ErrNotFound, got %v", err)
	}
	if _, err := svc.Dialogue(context.Background(), "pc-1", npc.DialogueInput{Message: "   "}); !errors.Is(err, lorerr.ErrInvalidInput) {
		t.Errorf("empty message: want ErrInvalidInput, got %v", err)
	}
}

func TestInfoForPlayersHidesSecrets(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCampaign(t, st)
	ch := &store.Character{
		ID: "npc-1", CampaignID: "camp-1", Name: "Grimjaw", Type: store.CharacterNPC,
		Race: "dwarf", Occupation: "blacksmith", Appearance: "soot-streaked beard",
		Motivation: "pay off an old debt", Secret: "smuggles weapons",
		Disposition: -60, SpeechPattern: store.SpeechGruff, IsAlive: true,
	}
	if err := st.CreateCharacter(context.Background(), ch); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	svc, _ := newService(t, st, "")
	view, err := svc.InfoForPlayers(context.Background(), "npc-1")
	if err != nil {
		t.Fatalf("InfoForPlayers: %v", err)
	}
	if view.Demeanor != "hostile" {
		t.Errorf("demeanor: want hostile, got %q", view.Demeanor)
	}
	if view.Name != "Grimjaw" || view.Occupation != "blacksmith" {
		t.Errorf("public fields missing: %+v", view)
	}
}

func TestInfoForPlayersShowsTwoTraits(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCampaign(t, st)
	ch := &store.Character{
		ID: "npc-1", CampaignID: "camp-1", Name: "Grimjaw", Type: store.CharacterNPC,
		PersonalityTraits: []string{"gruff", "loyal", "superstitious", "greedy"},
		IsAlive:           true,
	}
	if err := st.CreateCharacter(context.Background(), ch); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	svc, _ := newService(t, st, "")
	view, err := svc.InfoForPlayers(context.Background(), "npc-1")
	if err != nil {
		t.Fatalf("InfoForPlayers: %v", err)
	}
	if len(view.ObservableTraits) != 2 || view.ObservableTraits[0] != "gruff" || view.ObservableTraits[1] != "loyal" {
		t.Errorf("observable traits: %v, want the first two", view.ObservableTraits)
	}
}

func TestUpdateDisposition(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCampaign(t, st)
	ch := &store.Character{
		ID: "npc-1", CampaignID: "camp-1", Name: "Grimjaw", Type: store.CharacterNPC,
		Disposition: 40, IsAlive: true,
	}
	if err := st.CreateCharacter(context.Background(), ch); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	svc, _ := newService(t, st, "")

	got, err := svc.UpdateDisposition(context.Background(), "npc-1", "the party returned his stolen hammer", 15)
	if err != nil {
		t.Fatalf("UpdateDisposition: %v", err)
	}
	if got.Disposition != 55 || got.Change != 15 || got.Demeanor != "friendly" {
		t.Errorf("update: %+v", got)
	}

	persisted, _ := st.GetCharacter(context.Background(), "npc-1")
	if persisted.Disposition != 55 {
		t.Errorf("disposition not persisted: %d", persisted.Disposition)
	}
	if len(persisted.NPCMemory) != 1 {
		t.Fatalf("want 1 memory entry, got %d", len(persisted.NPCMemory))
	}
	want := "Event: the party returned his stolen hammer (disposition +15)"
	if persisted.NPCMemory[0] != want {
		t.Errorf("memory entry:\n got %q\nwant %q", persisted.NPCMemory[0], want)
	}

	// The scale caps at 100 no matter how large the swing.
	got, err = svc.UpdateDisposition(context.Background(), "npc-1", "saved his life", 500)
	if err != nil {
		t.Fatalf("UpdateDisposition (clamp): %v", err)
	}
	if got.Disposition != 100 {
		t.Errorf("clamped disposition: %d, want 100", got.Disposition)
	}
}

func TestUpdateDispositionRejectsNonNPC(t *testing.T) {
	t.Parallel()

	st := storetest.New()
	seedCampaign(t, st)
	pc := &store.Character{ID: "pc-1", CampaignID: "camp-1", Name: "Ariadne", Type: store.CharacterPC, IsAlive: true}
	if err := st.CreateCharacter(context.Background(), pc); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	svc, _ := newService(t, st, "")
	if _, err := svc.UpdateDisposition(context.Background(), "pc-1", "insulted", -5); !errors.Is(err, lorerr.ErrNotFound) {
		t.Errorf("pc target: want ErrNotFound, got %v", err)
	}
	if _, err := svc.UpdateDisposition(context.Background(), "npc-404", "insulted", -5); !errors.Is(err, lorerr.ErrNotFound) {
		t.Errorf("missing npc: want ErrNotFound, got %v", err)
	}
}
