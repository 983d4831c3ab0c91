// Package worldmap manages locations: generation, placement on the
// campaign's coordinate plane, travel connections, discovery, and the map
// projection served to clients. Dungeons and regions are generated as
// connected clusters.
package worldmap

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeeperhq/lorekeeper/internal/generator"
	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
	"github.com/lorekeeperhq/lorekeeper/internal/prompt"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// Placement constants: children scatter near their parent, top-level
// locations across the wider map, and nothing lands closer than
// minDistance to an existing location (best effort, placeRetries attempts).
const (
	childSpread    = 50.0
	worldSpread    = 500.0
	minDistance    = 20.0
	placeRetries   = 10
	secretChance   = 0.3
	maxTravelHours = 48
)

// pathTypes are the accepted travel path kinds. The passage kinds join
// dungeon rooms; the rest join overworld locations.
var pathTypes = map[string]bool{
	"road": true, "trail": true, "river": true, "mountain pass": true,
	"passage": true, "secret passage": true,
}

// Service implements world map operations.
type Service struct {
	store   store.Store
	gen     *generator.Generator
	catalog *prompt.Catalog
	graphs  *knowledge.Registry
	log     *slog.Logger
	rng     *rand.Rand
	now     func() time.Time
	newID   func() string
}

// Config carries the Service dependencies. Store, Generator, and Catalog
// are required. Rand is overridable for deterministic placement in tests.
type Config struct {
	Store     store.Store
	Generator *generator.Generator
	Catalog   *prompt.Catalog
	Graphs    *knowledge.Registry
	Logger    *slog.Logger
	Rand      *rand.Rand

	Clock func() time.Time
	IDs   func() string
}

// NewService builds a world map service.
func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
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
		log:     log.With("component", "worldmap"),
		rng:     rng,
		now:     now,
		newID:   ids,
	}
}

// Get returns the location with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*store.Location, error) {
	l, err := s.store.GetLocation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("worldmap: get: %w", err)
	}
	if l == nil {
		return nil, fmt.Errorf("worldmap: get: location %q: %w", id, lorerr.ErrNotFound)
	}
	return l, nil
}

// List returns the campaign's locations.
func (s *Service) List(ctx context.Context, campaignID string) ([]*store.Location, error) {
	out, err := s.store.ListLocations(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("worldmap: list: %w", err)
	}
	return out, nil
}

// CreateInput parameterizes location creation. Zero Name asks the generator
// to invent the location; a non-empty Name keeps the caller's content and
// only fills the gaps.
type CreateInput struct {
	Name             string
	Description      string
	LocationType     string
	Theme            string
	DangerLevel      int
	ParentLocationID string
	IsDiscovered     bool

	// X and Y place the location explicitly. When HasCoordinates is false,
	// a spot is picked near the parent (or across the map).
	HasCoordinates bool
	X, Y           float64
}

// Create adds one location to the campaign, generating its descriptive
// content when the caller supplies no name, and placing it on the map.
func (s *Service) Create(ctx context.Context, campaignID string, in CreateInput) (*store.Location, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("worldmap: create: %w", err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("worldmap: create: campaign %q: %w", campaignID, lorerr.ErrNotFound)
	}

	var parent *store.Location
	if in.ParentLocationID != "" {
		parent, err = s.store.GetLocation(ctx, in.ParentLocationID)
		if err != nil {
			return nil, fmt.Errorf("worldmap: create: %w", err)
		}
		if parent == nil {
			return nil, fmt.Errorf("worldmap: create: parent %q: %w", in.ParentLocationID, lorerr.ErrNotFound)
		}
	}

	loc := &store.Location{
		ID:           s.newID(),
		CampaignID:   campaignID,
		Name:         in.Name,
		Description:  in.Description,
		LocationType: in.LocationType,
		DangerLevel:  clampDanger(in.DangerLevel),
		IsDiscovered: in.IsDiscovered,
		IsAccessible: true,
		CreatedAt:    s.now().UTC(),
		UpdatedAt:    s.now().UTC(),
	}
	if parent != nil {
		pid := parent.ID
		loc.ParentLocationID = &pid
	}

	if loc.Name == "" {
		if err := s.generateContent(ctx, campaign, loc, in.Theme); err != nil {
			return nil, fmt.Errorf("worldmap: create: %w", err)
		}
	}

	if in.HasCoordinates {
		loc.X, loc.Y = in.X, in.Y
	} else {
		existing, err := s.store.ListLocations(ctx, campaignID)
		if err != nil {
			return nil, fmt.Errorf("worldmap: create: %w", err)
		}
		loc.X, loc.Y = s.place(parent, existing)
	}

	if err := s.store.CreateLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("worldmap: create: %w", err)
	}

	s.registerInGraph(ctx, loc, parent)
	s.log.InfoContext(ctx, "created location",
		"campaign_id", campaignID, "location_id", loc.ID, "name", loc.Name)
	return loc, nil
}

// generateContent fills the location's descriptive fields from the
// generator.
func (s *Service) generateContent(ctx context.Context, campaign *store.Campaign, loc *store.Location, theme string) error {
	kctx := knowledge.NoContextSentinel
	if s.graphs != nil {
		_ = s.graphs.WithGraph(ctx, campaign.ID, func(g *knowledge.Graph) error {
			var seeds []string
			for _, n := range g.NodesByType(knowledge.NodeLocation) {
				seeds = append(seeds, n.ID)
			}
			kctx = g.SubgraphForPrompt(seeds, 1, 20)
			return nil
		})
	}

	if theme == "" {
		theme = "fits the surrounding region"
	}
	locType := loc.LocationType
	if locType == "" {
		locType = "settlement"
	}

	rendered, err := s.catalog.Render(prompt.TplLocation, map[string]string{
		"genre":               string(campaign.Genre),
		"tone":                string(campaign.Tone),
		"knowledge_context":   kctx,
		"location_type":       locType,
		"theme":               theme,
		"danger_level":        fmt.Sprintf("%d", loc.DangerLevel),
		"connected_locations": "none yet",
	})
	if err != nil {
		return err
	}

	data, err := s.gen.GenerateStructuredWithRetry(ctx, rendered.System, rendered.User)
	if err != nil {
		return err
	}

	loc.Name = generator.Str(data, "name")
	if loc.Name == "" {
		loc.Name = "Unnamed Place"
	}
	loc.Description = generator.Str(data, "description")
	loc.DetailedDescription = generator.Str(data, "detailed_description")
	loc.Atmosphere = generator.Str(data, "atmosphere")
	loc.Terrain = generator.Str(data, "terrain")
	loc.Climate = generator.Str(data, "climate")
	for _, poi := range generator.Maps(data, "points_of_interest") {
		loc.PointsOfInterest = append(loc.PointsOfInterest, store.PointOfInterest{
			Name:        generator.Str(poi, "name"),
			Description: generator.Str(poi, "description"),
		})
	}
	return nil
}

// place picks coordinates near the parent (or across the map), retrying a
// few times to keep minDistance from every existing location. After the
// retries run out the last candidate wins.
func (s *Service) place(parent *store.Location, existing []*store.Location) (x, y float64) {
	cx, cy, spread := 0.0, 0.0, worldSpread
	if parent != nil {
		cx, cy, spread = parent.X, parent.Y, childSpread
	}

	for attempt := 0; attempt < placeRetries; attempt++ {
		x = cx + (s.rng.Float64()*2-1)*spread
		y = cy + (s.rng.Float64()*2-1)*spread

		tooClose := false
		for _, l := range existing {
			if math.Hypot(l.X-x, l.Y-y) < minDistance {
				tooClose = true
				break
			}
		}
		if !tooClose {
			return x, y
		}
	}
	return x, y
}

func clampDanger(d int) int {
	if d < 1 {
		return 1
	}
	if d > 10 {
		return 10
	}
	return d
}

// registerInGraph mirrors the location into the knowledge graph, with a
// part_of edge to its parent. Failures are logged, not fatal.
func (s *Service) registerInGraph(ctx context.Context, loc *store.Location, parent *store.Location) {
	if s.graphs == nil {
		return
	}
	err := s.graphs.WithGraph(ctx, loc.CampaignID, func(g *knowledge.Graph) error {
		if _, err := g.AddEntity(knowledge.EntityInput{
			ID:          loc.ID,
			Type:        knowledge.NodeLocation,
			Name:        loc.Name,
			Description: loc.Description,
		}); err != nil {
			return err
		}
		if parent != nil {
			if _, ok := g.Entity(parent.ID); ok {
				if _, err := g.AddRelationship(loc.ID, parent.ID, knowledge.EdgePartOf, nil); err != nil {
					return err
				}
				if _, err := g.AddRelationship(loc.ID, parent.ID, knowledge.EdgeConnectedTo,
					map[string]any{"path_type": "contained"}); err != nil {
					return err
				}
			}
		}
		return g.SaveTo(ctx, s.store)
	})
	if err != nil {
		s.log.WarnContext(ctx, "location graph registration failed", "location_id", loc.ID, "error", err)
	}
}

// Connect creates a two-way travel connection between locations. An
// existing connection between the pair is replaced rather than duplicated.
func (s *Service) Connect(ctx context.Context, fromID, toID, pathType string, travelTime int) error {
	if fromID == toID {
		return fmt.Errorf("worldmap: connect: location cannot connect to itself: %w", lorerr.ErrInvalidInput)
	}
	if !pathTypes[pathType] {
		return fmt.Errorf("worldmap: connect: unknown path type %q: %w", pathType, lorerr.ErrInvalidInput)
	}
	if travelTime < 1 || travelTime > maxTravelHours {
		return fmt.Errorf("worldmap: connect: travel time %d outside [1, %d]: %w", travelTime, maxTravelHours, lorerr.ErrInvalidInput)
	}

	from, err := s.Get(ctx, fromID)
	if err != nil {
		return err
	}
	to, err := s.Get(ctx, toID)
	if err != nil {
		return err
	}
	if from.CampaignID != to.CampaignID {
		return fmt.Errorf("worldmap: connect: locations belong to different campaigns: %w", lorerr.ErrInvalidInput)
	}

	setConnection(from, store.Connection{LocationID: to.ID, PathType: pathType, TravelTime: travelTime})
	setConnection(to, store.Connection{LocationID: from.ID, PathType: pathType, TravelTime: travelTime})
	from.UpdatedAt = s.now().UTC()
	to.UpdatedAt = from.UpdatedAt

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.UpdateLocation(ctx, from); err != nil {
			return fmt.Errorf("worldmap: connect: %w", err)
		}
		if err := tx.UpdateLocation(ctx, to); err != nil {
			return fmt.Errorf("worldmap: connect: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.connectInGraph(ctx, from.CampaignID, from.ID, to.ID, map[string]any{
		"path_type":   pathType,
		"travel_time": travelTime,
	})
	return nil
}

// connectInGraph mirrors a travel connection as a pair of connected_to
// edges, one in each direction. Graph failures degrade to a log line; the
// relational rows already hold the connection.
func (s *Service) connectInGraph(ctx context.Context, campaignID, fromID, toID string, props map[string]any) {
	if s.graphs == nil {
		return
	}
	err := s.graphs.WithGraph(ctx, campaignID, func(g *knowledge.Graph) error {
		if _, err := g.AddRelationship(fromID, toID, knowledge.EdgeConnectedTo, props); err != nil {
			return err
		}
		if _, err := g.AddRelationship(toID, fromID, knowledge.EdgeConnectedTo, props); err != nil {
			return err
		}
		return g.SaveTo(ctx, s.store)
	})
	if err != nil {
		s.log.WarnContext(ctx, "connection graph registration failed",
			"from", fromID, "to", toID, "error", err)
	}
}

func setConnection(l *store.Location, conn store.Connection) {
	for i, c := range l.ConnectedLocations {
		if c.LocationID == conn.LocationID {
			l.ConnectedLocations[i] = conn
			return
		}
	}
	l.ConnectedLocations = append(l.ConnectedLocations, conn)
}

// Discover marks a location as discovered. Discovery is idempotent.
func (s *Service) Discover(ctx context.Context, id string) (*store.Location, error) {
	loc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc.IsDiscovered {
		return loc, nil
	}
	loc.IsDiscovered = true
	loc.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("worldmap: discover: %w", err)
	}
	s.log.InfoContext(ctx, "location discovered", "location_id", id, "name", loc.Name)
	return loc, nil
}

// MapNode is one location on the rendered map.
type MapNode struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	LocationType string  `json:"location_type,omitempty"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	DangerLevel  int     `json:"danger_level"`
	IsDiscovered bool    `json:"is_discovered"`
	ParentID     string  `json:"parent_location_id,omitempty"`
}

// MapEdge is one travel connection on the rendered map. Each two-way
// connection appears once.
type MapEdge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	PathType   string `json:"path_type"`
	TravelTime int    `json:"travel_time"`
}

// MapData is the client-facing projection of the campaign's world map.
type MapData struct {
	Nodes []MapNode `json:"nodes"`
	Edges []MapEdge `json:"edges"`
}

// Map returns the campaign's map with reverse edges deduplicated.
func (s *Service) Map(ctx context.Context, campaignID string) (*MapData, error) {
	locations, err := s.store.ListLocations(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("worldmap: map: %w", err)
	}

	data := &MapData{Nodes: []MapNode{}, Edges: []MapEdge{}}
	seen := make(map[[2]string]bool)

	for _, l := range locations {
		node := MapNode{
			ID: l.ID, Name: l.Name, LocationType: l.LocationType,
			X: l.X, Y: l.Y, DangerLevel: l.DangerLevel, IsDiscovered: l.IsDiscovered,
		}
		if l.ParentLocationID != nil {
			node.ParentID = *l.ParentLocationID
		}
		data.Nodes = append(data.Nodes, node)

		for _, c := range l.ConnectedLocations {
			key := [2]string{l.ID, c.LocationID}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			data.Edges = append(data.Edges, MapEdge{
				From: l.ID, To: c.LocationID, PathType: c.PathType, TravelTime: c.TravelTime,
			})
		}
	}
	return data, nil
}

// SceneInput sets the conditions for a scene description.
type SceneInput struct {
	TimeOfDay string
	Weather   string
}

// Scene narrates the party's current view of a location under the given
// time and weather.
func (s *Service) Scene(ctx context.Context, locationID string, in SceneInput) (string, error) {
	loc, err := s.Get(ctx, locationID)
	if err != nil {
		return "", err
	}

	campaign, err := s.store.GetCampaign(ctx, loc.CampaignID)
	if err != nil {
		return "", fmt.Errorf("worldmap: scene: %w", err)
	}
	if campaign == nil {
		return "", fmt.Errorf("worldmap: scene: campaign %q: %w", loc.CampaignID, lorerr.ErrNotFound)
	}

	if in.TimeOfDay == "" {
		in.TimeOfDay = "midday"
	}
	if in.Weather == "" {
		in.Weather = "clear"
	}
	desc := loc.DetailedDescription
	if desc == "" {
		desc = loc.Description
	}

	rendered, err := s.catalog.Render(prompt.TplSceneDescription, map[string]string{
		"genre":                string(campaign.Genre),
		"tone":                 string(campaign.Tone),
		"location_description": fmt.Sprintf("%s: %s", loc.Name, desc),
		"time_of_day":          in.TimeOfDay,
		"weather":              in.Weather,
	})
	if err != nil {
		return "", fmt.Errorf("worldmap: scene: %w", err)
	}

	text, err := s.gen.GenerateWithRetry(ctx, rendered.System, rendered.User)
	if err != nil {
		return "", fmt.Errorf("worldmap: scene: %w", err)
	}
	return text, nil
}

// DungeonInput parameterizes dungeon generation.
type DungeonInput struct {
	Name             string
	Theme            string
	Rooms            int
	DangerLevel      int
	ParentLocationID string
}

// GenerateDungeon creates a chain of connected rooms under one dungeon
// location. The final room is the boss chamber at elevated danger, and deep
// rooms occasionally gain a secret passage back to an earlier one.
func (s *Service) GenerateDungeon(ctx context.Context, campaignID string, in DungeonInput) ([]*store.Location, error) {
	if in.Rooms < 1 {
		in.Rooms = 5
	}
	base := clampDanger(in.DangerLevel)

	entrance, err := s.Create(ctx, campaignID, CreateInput{
		Name:             in.Name,
		LocationType:     "dungeon",
		Theme:            in.Theme,
		DangerLevel:      base,
		ParentLocationID: in.ParentLocationID,
	})
	if err != nil {
		return nil, fmt.Errorf("worldmap: dungeon: %w", err)
	}

	rooms := []*store.Location{entrance}
	for i := 1; i <= in.Rooms; i++ {
		danger := base
		name := fmt.Sprintf("%s - chamber %d", entrance.Name, i)
		if i == in.Rooms {
			name = fmt.Sprintf("%s - boss chamber", entrance.Name)
			danger = base + 2
			if danger > 10 {
				danger = 10
			}
		}

		room, err := s.Create(ctx, campaignID, CreateInput{
			Name:             name,
			LocationType:     "dungeon room",
			DangerLevel:      danger,
			ParentLocationID: entrance.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("worldmap: dungeon: %w", err)
		}

		prev := rooms[len(rooms)-1]
		if err := s.Connect(ctx, prev.ID, room.ID, "passage", 1); err != nil {
			return nil, fmt.Errorf("worldmap: dungeon: %w", err)
		}

		// Deep rooms sometimes loop back to an earlier room, never the
		// entrance.
		if i > 2 && s.rng.Float64() < secretChance {
			back := rooms[1+s.rng.IntN(len(rooms)-1)]
			if err := s.Connect(ctx, back.ID, room.ID, "secret passage", 1); err != nil {
				return nil, fmt.Errorf("worldmap: dungeon: %w", err)
			}
		}

		rooms = append(rooms, room)
	}

	return rooms, nil
}

// RegionInput parameterizes region generation.
type RegionInput struct {
	Theme string
	Count int
}

// GenerateRegion creates a region location and a cluster of varied child
// locations under it, joined by travel paths of random kind and length.
// Each new location links back to one or two random earlier ones, so the
// cluster grows into a loose web rather than a chain.
func (s *Service) GenerateRegion(ctx context.Context, campaignID string, in RegionInput) ([]*store.Location, error) {
	if in.Count < 2 {
		in.Count = 3
	}

	region, err := s.Create(ctx, campaignID, CreateInput{
		LocationType: "region",
		Theme:        in.Theme,
		DangerLevel:  3,
	})
	if err != nil {
		return nil, fmt.Errorf("worldmap: region: %w", err)
	}

	kinds := []string{"road", "trail", "river", "mountain pass"}
	types := []string{"city", "town", "village", "wilderness", "dungeon", "landmark"}

	out := []*store.Location{region}
	for i := 0; i < in.Count; i++ {
		loc, err := s.Create(ctx, campaignID, CreateInput{
			LocationType:     types[s.rng.IntN(len(types))],
			Theme:            in.Theme,
			DangerLevel:      1 + s.rng.IntN(7),
			ParentLocationID: region.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("worldmap: region: %w", err)
		}
		out = append(out, loc)

		// Candidates exclude the region itself and the location just
		// created.
		if candidates := out[1 : len(out)-1]; len(candidates) > 0 {
			links := 1 + s.rng.IntN(min(2, len(candidates)))
			for j := 0; j < links; j++ {
				other := candidates[s.rng.IntN(len(candidates))]
				pathType := kinds[s.rng.IntN(len(kinds))]
				travel := 1 + s.rng.IntN(maxTravelHours)
				if err := s.Connect(ctx, loc.ID, other.ID, pathType, travel); err != nil {
					return nil, fmt.Errorf("worldmap: region: %w", err)
				}
			}
		}
	}
	return out, nil
}
