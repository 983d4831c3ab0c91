package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lorekeeperhq/lorekeeper/internal/dice"
	"github.com/lorekeeperhq/lorekeeper/internal/encounter"
	"github.com/lorekeeperhq/lorekeeper/internal/generator"
	"github.com/lorekeeperhq/lorekeeper/internal/httpapi"
	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/narrative"
	"github.com/lorekeeperhq/lorekeeper/internal/npc"
	"github.com/lorekeeperhq/lorekeeper/internal/prompt"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
	"github.com/lorekeeperhq/lorekeeper/internal/store/storetest"
	"github.com/lorekeeperhq/lorekeeper/internal/world"
	"github.com/lorekeeperhq/lorekeeper/internal/worldmap"
	"github.com/lorekeeperhq/lorekeeper/pkg/provider/llm"
	llmmock "github.com/lorekeeperhq/lorekeeper/pkg/provider/llm/mock"
)

// fixedSource always rolls the same face, making dice outcomes exact.
type fixedSource struct{ n int }

func (f fixedSource) IntN(int) int { return f.n }

type fixture struct {
	handler  http.Handler
	provider *llmmock.Provider
	st       *storetest.Store
	graphs   *knowledge.Registry
}

func newFixture(t *testing.T, response string) *fixture {
	t.Helper()
	st := storetest.New()
	provider := &llmmock.Provider{}
	if response != "" {
		provider.CompleteResponse = &llm.CompletionResponse{Content: response}
	}
	gen := generator.New(provider, generator.Config{MaxRetries: 0})
	catalog := prompt.NewCatalog()
	graphs := knowledge.NewRegistry(knowledge.RegistryConfig{Persister: st})
	clock := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	counter := 0
	ids := func() string {
		counter++
		return fmt.Sprintf("id-%d", counter)
	}

	worldSvc := world.NewService(world.Config{Store: st, Graphs: graphs, Clock: clock, IDs: ids})
	srv := httpapi.NewServer(httpapi.Config{
		World: worldSvc,
		Narrative: narrative.NewService(narrative.Config{
			Store: st, Generator: gen, Catalog: catalog, Graphs: graphs,
			World: worldSvc, Clock: clock, IDs: ids,
		}),
		NPCs: npc.NewService(npc.Config{
			Store: st, Generator: gen, Catalog: catalog, Graphs: graphs,
			Clock: clock, IDs: ids,
		}),
		Encounters: encounter.NewService(encounter.Config{
			Store: st, Generator: gen, Catalog: catalog, Graphs: graphs,
			Roller: dice.New(fixedSource{n: 9}), Clock: clock, IDs: ids,
		}),
		Maps: worldmap.NewService(worldmap.Config{
			Store: st, Generator: gen, Catalog: catalog, Graphs: graphs,
			Clock: clock, IDs: ids,
		}),
		Graphs: graphs,
		Store:  st,
		Roller: dice.New(fixedSource{n: 9}),
	})
	return &fixture{handler: srv.Handler(), provider: provider, st: st, graphs: graphs}
}

// do runs one request through the handler and decodes the JSON response
// into out (when non-nil), returning the status code.
func (f *fixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code
}

func (f *fixture) seedCampaign(t *testing.T) {
	t.Helper()
	c := &store.Campaign{ID: "camp-1", Name: "The Shattered Vale", Genre: store.GenreFantasy, Tone: store.ToneDark}
	if err := f.st.CreateCampaign(context.Background(), c); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
}

func TestRootInfo(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	var info map[string]string
	if code := f.do(t, http.MethodGet, "/", nil, &info); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if info["name"] != "lorekeeper" {
		t.Errorf("name = %q", info["name"])
	}
}

func TestCampaignLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	var created store.Campaign
	code := f.do(t, http.MethodPost, "/api/campaigns",
		map[string]any{"name": "The Shattered Vale", "genre": "fantasy", "tone": "dark"}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.ID == "" || created.Name != "The Shattered Vale" {
		t.Errorf("created = %+v", created)
	}

	var listed []map[string]any
	if code := f.do(t, http.MethodGet, "/api/campaigns", nil, &listed); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d campaigns", len(listed))
	}
	if _, ok := listed[0]["counts"]; !ok {
		t.Error("list entries should carry counts")
	}

	if code := f.do(t, http.MethodDelete, "/api/campaigns/"+created.ID, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete status = %d", code)
	}
	if code := f.do(t, http.MethodGet, "/api/campaigns/"+created.ID, nil, nil); code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", code)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.seedCampaign(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{
			name:   "validation failure is 400",
			method: http.MethodPost,
			path:   "/api/campaigns",
			body:   map[string]any{"name": ""},
			want:   http.StatusBadRequest,
		},
		{
			name:   "unknown entity is 404",
			method: http.MethodGet,
			path:   "/api/campaigns/no-such-campaign",
			want:   http.StatusNotFound,
		},
		{
			name:   "malformed body is 400",
			method: http.MethodPost,
			path:   "/api/campaigns",
			body:   map[string]any{"name": "x", "bogus_field": true},
			want:   http.StatusBadRequest,
		},
		{
			name:   "bad dice notation is 400",
			method: http.MethodPost,
			path:   "/api/dice/roll",
			body:   map[string]any{"notation": "2d7"},
			want:   http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body map[string]any
			code := f.do(t, tc.method, tc.path, tc.body, &body)
			if code != tc.want {
				t.Fatalf("status = %d, want %d (body %v)", code, tc.want, body)
			}
			if body["error"] == "" {
				t.Error("error envelope should carry a message")
			}
		})
	}
}

func TestStateViolationIs400(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.seedCampaign(t)

	if code := f.do(t, http.MethodPost, "/api/campaigns/camp-1/sessions", nil, nil); code != http.StatusCreated {
		t.Fatalf("first session status = %d", code)
	}
	// A second session while one is active violates session state.
	if code := f.do(t, http.MethodPost, "/api/campaigns/camp-1/sessions", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("second session status = %d", code)
	}
}

func TestDiceRoutes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	// fixedSource{9} makes every die land on face 10.
	var roll dice.RollResult
	if code := f.do(t, http.MethodPost, "/api/dice/roll",
		map[string]any{"notation": "2d6+3"}, &roll); code != http.StatusOK {
		t.Fatalf("roll status = %d", code)
	}
	if roll.Total != 23 || len(roll.Rolls) != 2 {
		t.Errorf("roll = %+v", roll)
	}

	var check dice.CheckResult
	if code := f.do(t, http.MethodPost, "/api/dice/skill-check",
		map[string]any{"dc": 12, "modifier": 3}, &check); code != http.StatusOK {
		t.Fatalf("skill-check status = %d", code)
	}
	if !check.Success || check.Roll.Total != 13 {
		t.Errorf("check = %+v", check)
	}

	var stats map[string][]dice.StatRoll
	if code := f.do(t, http.MethodPost, "/api/dice/stats", nil, &stats); code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	if len(stats["stats"]) != 6 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCORSHeaders(t *testing.T) {
	t.Parallel()
	st := storetest.New()
	graphs := knowledge.NewRegistry(knowledge.RegistryConfig{Persister: st})
	srv := httpapi.NewServer(httpapi.Config{
		World:              world.NewService(world.Config{Store: st, Graphs: graphs}),
		Graphs:             graphs,
		Store:              st,
		CORSAllowedOrigins: []string{"https://app.example.com"},
	})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/campaigns", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/campaigns", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got allow-origin = %q", got)
	}

	// Preflight.
	req = httptest.NewRequest(http.MethodOptions, "/api/campaigns", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight should list allowed methods")
	}
}

func TestWorldViewRoutes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.seedCampaign(t)

	here := "loc-1"
	if err := f.st.CreateLocation(context.Background(), &store.Location{
		ID: here, CampaignID: "camp-1", Name: "Dunmere", IsAccessible: true,
	}); err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	if err := f.st.CreateCharacter(context.Background(), &store.Character{
		ID: "pc-1", CampaignID: "camp-1", Name: "Ariadne", Type: store.CharacterPC,
		Level: 3, HPCurrent: 18, HPMax: 24, Experience: 900, IsAlive: true,
		CurrentLocationID: &here,
	}); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}
	if err := f.st.CreateCharacter(context.Background(), &store.Character{
		ID: "npc-1", CampaignID: "camp-1", Name: "Old Maren", Type: store.CharacterNPC,
		Disposition: 35, IsAlive: true, CurrentLocationID: &here,
	}); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	var status world.PartyStatus
	if code := f.do(t, http.MethodGet, "/api/campaigns/camp-1/party", nil, &status); code != http.StatusOK {
		t.Fatalf("party status = %d", code)
	}
	if status.PartySize != 1 || status.TotalHP != 18 || status.TotalXP != 900 {
		t.Errorf("party = %+v", status)
	}

	var state world.LocationState
	if code := f.do(t, http.MethodGet, "/api/locations/loc-1/state", nil, &state); code != http.StatusOK {
		t.Fatalf("location state = %d", code)
	}
	if len(state.CharactersPresent) != 2 {
		t.Errorf("occupants = %+v", state.CharactersPresent)
	}
	if code := f.do(t, http.MethodGet, "/api/locations/no-such/state", nil, nil); code != http.StatusNotFound {
		t.Errorf("missing location = %d", code)
	}
}

func TestDispositionRoute(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.seedCampaign(t)
	if err := f.st.CreateCharacter(context.Background(), &store.Character{
		ID: "npc-1", CampaignID: "camp-1", Name: "Old Maren", Type: store.CharacterNPC,
		Disposition: 90, IsAlive: true,
	}); err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}

	var update npc.DispositionUpdate
	code := f.do(t, http.MethodPost, "/api/characters/npc-1/disposition",
		map[string]any{"description": "ferried the party for free", "delta": 25}, &update)
	if code != http.StatusOK {
		t.Fatalf("disposition status = %d", code)
	}
	if update.Disposition != 100 || update.Demeanor != "friendly" {
		t.Errorf("update = %+v", update)
	}
}
