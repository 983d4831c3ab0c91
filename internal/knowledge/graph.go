package knowledge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lorekeeperhq/lorekeeper/internal/knowledge/phonetic"
	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
)

// Graph is a single campaign's knowledge graph.
//
// Graph performs no internal locking: callers go through [Registry], which
// serializes all access to one campaign's graph. Query methods return copies,
// never references into internal state.
type Graph struct {
	campaignID string

	nodes     map[string]Node
	nodeOrder []string

	edges     map[edgeKey]Edge
	edgeOrder []edgeKey

	matcher *phonetic.Matcher
	now     func() time.Time
}

// GraphOption configures a [Graph] at construction.
type GraphOption func(*Graph)

// WithClock injects a time source. Used by tests to pin timestamps.
func WithClock(now func() time.Time) GraphOption {
	return func(g *Graph) { g.now = now }
}

// WithPhoneticSearch enables a lowest-priority fuzzy tier in [Graph.Search]
// that matches misheard or misspelled entity names by Double Metaphone codes.
func WithPhoneticSearch() GraphOption {
	return func(g *Graph) { g.matcher = phonetic.New() }
}

// NewGraph returns an empty graph scoped to the given campaign.
func NewGraph(campaignID string, opts ...GraphOption) *Graph {
	g := &Graph{
		campaignID: campaignID,
		nodes:      make(map[string]Node),
		edges:      make(map[edgeKey]Edge),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CampaignID returns the campaign this graph belongs to.
func (g *Graph) CampaignID() string { return g.campaignID }

// ─── Mutation ────────────────────────────────────────────────────────────────

// EntityInput carries the fields for [Graph.AddEntity]. Importance 0 means
// the default of 5.
type EntityInput struct {
	ID          string
	Type        NodeType
	Name        string
	Description string
	Properties  map[string]any
	Importance  int
}

// AddEntity inserts an entity. A second call with the same ID replaces the
// previous node but keeps its creation timestamp. Unknown types are rejected.
func (g *Graph) AddEntity(in EntityInput) (Node, error) {
	if in.ID == "" || in.Name == "" {
		return Node{}, fmt.Errorf("knowledge: entity needs id and name: %w", lorerr.ErrInvalidInput)
	}
	if !ValidNodeType(in.Type) {
		return Node{}, fmt.Errorf("knowledge: unknown node type %q: %w", in.Type, lorerr.ErrGraphInvariant)
	}

	now := g.now().UTC()
	n := Node{
		ID:          in.ID,
		Type:        in.Type,
		Name:        in.Name,
		Description: in.Description,
		Properties:  copyProps(in.Properties),
		Importance:  clampImportance(in.Importance),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if prev, ok := g.nodes[in.ID]; ok {
		n.CreatedAt = prev.CreatedAt
	} else {
		g.nodeOrder = append(g.nodeOrder, in.ID)
	}
	g.nodes[in.ID] = n
	return n, nil
}

// EntityUpdate carries the partial fields for [Graph.UpdateEntity]. Nil
// pointers leave the field untouched; Properties merge shallowly into the
// existing map.
type EntityUpdate struct {
	Name        *string
	Description *string
	Properties  map[string]any
	Importance  *int
}

// UpdateEntity applies a partial update and bumps the entity's timestamp.
func (g *Graph) UpdateEntity(id string, upd EntityUpdate) (Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("knowledge: entity %q: %w", id, lorerr.ErrNotFound)
	}
	if upd.Name != nil {
		n.Name = *upd.Name
	}
	if upd.Description != nil {
		n.Description = *upd.Description
	}
	if upd.Importance != nil {
		n.Importance = clampImportance(*upd.Importance)
	}
	if len(upd.Properties) > 0 {
		if n.Properties == nil {
			n.Properties = make(map[string]any, len(upd.Properties))
		} else {
			n.Properties = copyProps(n.Properties)
		}
		for k, v := range upd.Properties {
			n.Properties[k] = v
		}
	}
	n.UpdatedAt = g.now().UTC()
	g.nodes[id] = n
	return n, nil
}

// RemoveEntity deletes the entity and every incident edge.
func (g *Graph) RemoveEntity(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("knowledge: entity %q: %w", id, lorerr.ErrNotFound)
	}
	delete(g.nodes, id)
	g.nodeOrder = removeString(g.nodeOrder, id)

	kept := g.edgeOrder[:0]
	for _, k := range g.edgeOrder {
		if k.source == id || k.target == id {
			delete(g.edges, k)
			continue
		}
		kept = append(kept, k)
	}
	g.edgeOrder = kept
	return nil
}

// AddRelationship inserts a directed edge, replacing any existing edge of
// the same (source, target, type). Both endpoints must exist.
func (g *Graph) AddRelationship(source, target string, typ EdgeType, props map[string]any) (Edge, error) {
	if !ValidEdgeType(typ) {
		return Edge{}, fmt.Errorf("knowledge: unknown edge type %q: %w", typ, lorerr.ErrGraphInvariant)
	}
	if _, ok := g.nodes[source]; !ok {
		return Edge{}, fmt.Errorf("knowledge: edge source %q not in graph: %w", source, lorerr.ErrGraphInvariant)
	}
	if _, ok := g.nodes[target]; !ok {
		return Edge{}, fmt.Errorf("knowledge: edge target %q not in graph: %w", target, lorerr.ErrGraphInvariant)
	}

	k := edgeKey{source: source, target: target, typ: typ}
	e := Edge{
		Source:     source,
		Target:     target,
		Type:       typ,
		Properties: copyProps(props),
		CreatedAt:  g.now().UTC(),
		IsActive:   true,
	}
	if prev, ok := g.edges[k]; ok {
		e.CreatedAt = prev.CreatedAt
	} else {
		g.edgeOrder = append(g.edgeOrder, k)
	}
	g.edges[k] = e
	return e, nil
}

// RemoveRelationship removes the edge of the given type between source and
// target. An empty type removes all edges between the pair.
func (g *Graph) RemoveRelationship(source, target string, typ EdgeType) error {
	removed := false
	kept := g.edgeOrder[:0]
	for _, k := range g.edgeOrder {
		if k.source == source && k.target == target && (typ == "" || k.typ == typ) {
			delete(g.edges, k)
			removed = true
			continue
		}
		kept = append(kept, k)
	}
	g.edgeOrder = kept
	if !removed {
		return fmt.Errorf("knowledge: edge %s -> %s: %w", source, target, lorerr.ErrNotFound)
	}
	return nil
}

// ─── Query ───────────────────────────────────────────────────────────────────

// Entity returns the node with the given ID.
func (g *Graph) Entity(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edgeOrder))
	for _, k := range g.edgeOrder {
		out = append(out, g.edges[k])
	}
	return out
}

// NodesByType returns all nodes of the given type in insertion order.
func (g *Graph) NodesByType(typ NodeType) []Node {
	var out []Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// NeighborOptions bounds a [Graph.Neighbors] traversal. Zero-value Depth
// means 1; zero-value Direction means both; empty EdgeType means any.
type NeighborOptions struct {
	EdgeType  EdgeType
	Direction Direction
	Depth     int
}

// Neighbors performs a bounded breadth-first traversal from id and returns
// the reached nodes annotated with the edge that reached them. Cycles are
// cut by a visited set seeded with id itself.
func (g *Graph) Neighbors(id string, opts NeighborOptions) ([]Neighbor, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, fmt.Errorf("knowledge: entity %q: %w", id, lorerr.ErrNotFound)
	}
	if opts.Depth <= 0 {
		opts.Depth = 1
	}
	if opts.Direction == "" {
		opts.Direction = DirBoth
	}

	visited := map[string]struct{}{id: {}}
	frontier := []string{id}
	var out []Neighbor

	for depth := 1; depth <= opts.Depth && len(frontier) > 0; depth++ {
		var next []string
		for _, cur := range frontier {
			for _, k := range g.edgeOrder {
				if opts.EdgeType != "" && k.typ != opts.EdgeType {
					continue
				}
				var other string
				switch {
				case k.source == cur && (opts.Direction == DirOutgoing || opts.Direction == DirBoth):
					other = k.target
				case k.target == cur && (opts.Direction == DirIncoming || opts.Direction == DirBoth):
					other = k.source
				default:
					continue
				}
				if _, seen := visited[other]; seen {
					continue
				}
				visited[other] = struct{}{}
				out = append(out, Neighbor{Node: g.nodes[other], EdgeType: k.typ, Depth: depth})
				next = append(next, other)
			}
		}
		frontier = next
	}
	return out, nil
}

// LocationContext groups everything known about a place.
type LocationContext struct {
	Location           Node   `json:"location"`
	Characters         []Node `json:"characters"`
	Items              []Node `json:"items"`
	RecentEvents       []Node `json:"recent_events"`
	ConnectedLocations []Node `json:"connected_locations"`
	Factions           []Node `json:"factions"`
}

// ContextForLocation buckets the depth-2 neighborhood of a location node:
// characters and items located there, events that occurred there, directly
// connected locations, and any factions reachable within two hops.
func (g *Graph) ContextForLocation(id string) (LocationContext, error) {
	loc, ok := g.nodes[id]
	if !ok {
		return LocationContext{}, fmt.Errorf("knowledge: location %q: %w", id, lorerr.ErrNotFound)
	}
	ctx := LocationContext{Location: loc}

	for _, k := range g.edgeOrder {
		switch {
		case k.target == id && k.typ == EdgeLocatedIn:
			n := g.nodes[k.source]
			switch n.Type {
			case NodeCharacter:
				ctx.Characters = append(ctx.Characters, n)
			case NodeItem:
				ctx.Items = append(ctx.Items, n)
			}
		case k.target == id && k.typ == EdgeOccurredAt:
			ctx.RecentEvents = append(ctx.RecentEvents, g.nodes[k.source])
		case k.typ == EdgeConnectedTo && k.source == id:
			ctx.ConnectedLocations = append(ctx.ConnectedLocations, g.nodes[k.target])
		case k.typ == EdgeConnectedTo && k.target == id:
			ctx.ConnectedLocations = append(ctx.ConnectedLocations, g.nodes[k.source])
		}
	}

	neighbors, err := g.Neighbors(id, NeighborOptions{Direction: DirBoth, Depth: 2})
	if err != nil {
		return LocationContext{}, err
	}
	for _, nb := range neighbors {
		if nb.Node.Type == NodeFaction {
			ctx.Factions = append(ctx.Factions, nb.Node)
		}
	}
	return ctx, nil
}

// CharacterKnowledge groups everything a character is linked to.
type CharacterKnowledge struct {
	Character          Node   `json:"character"`
	KnownCharacters    []Node `json:"known_characters"`
	KnownLocations     []Node `json:"known_locations"`
	KnownItems         []Node `json:"known_items"`
	ParticipatedEvents []Node `json:"participated_events"`
	FactionMemberships []Node `json:"faction_memberships"`
}

// KnowledgeForCharacter buckets a character's outgoing relationships: people
// they know, places they are or have been, items they own, events they took
// part in, and factions they belong to.
func (g *Graph) KnowledgeForCharacter(id string) (CharacterKnowledge, error) {
	ch, ok := g.nodes[id]
	if !ok {
		return CharacterKnowledge{}, fmt.Errorf("knowledge: character %q: %w", id, lorerr.ErrNotFound)
	}
	ck := CharacterKnowledge{Character: ch}

	for _, k := range g.edgeOrder {
		if k.source != id {
			continue
		}
		n := g.nodes[k.target]
		switch k.typ {
		case EdgeKnows:
			ck.KnownCharacters = append(ck.KnownCharacters, n)
		case EdgeLocatedIn:
			ck.KnownLocations = append(ck.KnownLocations, n)
		case EdgeOwns:
			ck.KnownItems = append(ck.KnownItems, n)
		case EdgeParticipatedIn:
			ck.ParticipatedEvents = append(ck.ParticipatedEvents, n)
		case EdgeMemberOf:
			ck.FactionMemberships = append(ck.FactionMemberships, n)
		}
	}
	return ck, nil
}

// FactionRelation is one inter-faction edge.
type FactionRelation struct {
	Other string   `json:"other"`
	Type  EdgeType `json:"type"`
}

// FactionStatus summarizes one faction's members and stance toward other
// factions.
type FactionStatus struct {
	Faction   Node              `json:"faction"`
	Members   []Node            `json:"members"`
	Relations []FactionRelation `json:"relations"`
}

// FactionOverview enumerates every faction with its membership and edges to
// other factions.
func (g *Graph) FactionOverview() []FactionStatus {
	var out []FactionStatus
	for _, id := range g.nodeOrder {
		f := g.nodes[id]
		if f.Type != NodeFaction {
			continue
		}
		fs := FactionStatus{Faction: f}
		for _, k := range g.edgeOrder {
			switch {
			case k.target == id && k.typ == EdgeMemberOf:
				fs.Members = append(fs.Members, g.nodes[k.source])
			case k.source == id && g.nodes[k.target].Type == NodeFaction:
				fs.Relations = append(fs.Relations, FactionRelation{
					Other: g.nodes[k.target].Name,
					Type:  k.typ,
				})
			}
		}
		out = append(out, fs)
	}
	return out
}

// Path returns the shortest undirected path from source to target as a node
// sequence including both endpoints. The second return value is false when
// the nodes are disconnected or missing.
func (g *Graph) Path(source, target string) ([]Node, bool) {
	if _, ok := g.nodes[source]; !ok {
		return nil, false
	}
	if _, ok := g.nodes[target]; !ok {
		return nil, false
	}
	if source == target {
		return []Node{g.nodes[source]}, true
	}

	parent := map[string]string{source: ""}
	frontier := []string{source}
	for len(frontier) > 0 {
		var next []string
		for _, cur := range frontier {
			for _, k := range g.edgeOrder {
				var other string
				switch cur {
				case k.source:
					other = k.target
				case k.target:
					other = k.source
				default:
					continue
				}
				if _, seen := parent[other]; seen {
					continue
				}
				parent[other] = cur
				if other == target {
					return g.buildPath(parent, source, target), true
				}
				next = append(next, other)
			}
		}
		frontier = next
	}
	return nil, false
}

func (g *Graph) buildPath(parent map[string]string, source, target string) []Node {
	var ids []string
	for cur := target; cur != ""; cur = parent[cur] {
		ids = append(ids, cur)
		if cur == source {
			break
		}
	}
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = g.nodes[id]
	}
	return out
}

// Timeline returns event nodes newest-first, capped at limit (0 means all).
func (g *Graph) Timeline(limit int) []Node {
	events := g.NodesByType(NodeEvent)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}

// search ranking tiers, lower is better.
const (
	tierExactName = iota
	tierNameSubstring
	tierDescSubstring
	tierPhonetic
)

// Search finds nodes matching query case-insensitively. Exact name matches
// rank above name substrings, which rank above description-only matches;
// within a tier higher importance wins and ties keep insertion order. When
// phonetic search is enabled, a sound-alike name match joins as the lowest
// tier. An empty query is invalid.
func (g *Graph) Search(query string, typ NodeType, limit int) ([]Node, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("knowledge: empty search query: %w", lorerr.ErrInvalidInput)
	}
	if typ != "" && !ValidNodeType(typ) {
		return nil, fmt.Errorf("knowledge: unknown node type %q: %w", typ, lorerr.ErrGraphInvariant)
	}
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(query)

	type match struct {
		node  Node
		tier  int
		order int
	}
	var matches []match
	var unmatchedNames []string
	unmatchedByName := make(map[string]Node)

	for order, id := range g.nodeOrder {
		n := g.nodes[id]
		if typ != "" && n.Type != typ {
			continue
		}
		name := strings.ToLower(n.Name)
		desc := strings.ToLower(n.Description)
		switch {
		case name == q:
			matches = append(matches, match{n, tierExactName, order})
		case strings.Contains(name, q):
			matches = append(matches, match{n, tierNameSubstring, order})
		case strings.Contains(desc, q):
			matches = append(matches, match{n, tierDescSubstring, order})
		default:
			unmatchedNames = append(unmatchedNames, n.Name)
			unmatchedByName[n.Name] = n
		}
	}

	if g.matcher != nil && len(unmatchedNames) > 0 {
		if corrected, _, ok := g.matcher.Match(query, unmatchedNames); ok {
			if n, found := unmatchedByName[corrected]; found {
				matches = append(matches, match{n, tierPhonetic, len(g.nodeOrder)})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].tier != matches[j].tier {
			return matches[i].tier < matches[j].tier
		}
		if matches[i].node.Importance != matches[j].node.Importance {
			return matches[i].node.Importance > matches[j].node.Importance
		}
		return matches[i].order < matches[j].order
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Node, len(matches))
	for i, m := range matches {
		out[i] = m.node
	}
	return out, nil
}

// Stats summarizes graph size by type.
type Stats struct {
	NodeCount   int              `json:"node_count"`
	EdgeCount   int              `json:"edge_count"`
	NodesByType map[NodeType]int `json:"nodes_by_type"`
}

// Statistics returns node and edge counts.
func (g *Graph) Statistics() Stats {
	s := Stats{
		NodeCount:   len(g.nodes),
		EdgeCount:   len(g.edges),
		NodesByType: make(map[NodeType]int),
	}
	for _, n := range g.nodes {
		s.NodesByType[n.Type]++
	}
	return s
}

// ─── Snapshot & export ───────────────────────────────────────────────────────

// Snapshot is an opaque copy of graph state for rollback.
type Snapshot struct {
	nodes     map[string]Node
	nodeOrder []string
	edges     map[edgeKey]Edge
	edgeOrder []edgeKey
}

// TakeSnapshot captures the current state. Mutations applied afterward can
// be undone with [Graph.Restore].
func (g *Graph) TakeSnapshot() Snapshot {
	s := Snapshot{
		nodes:     make(map[string]Node, len(g.nodes)),
		nodeOrder: append([]string(nil), g.nodeOrder...),
		edges:     make(map[edgeKey]Edge, len(g.edges)),
		edgeOrder: append([]edgeKey(nil), g.edgeOrder...),
	}
	for id, n := range g.nodes {
		n.Properties = copyProps(n.Properties)
		s.nodes[id] = n
	}
	for k, e := range g.edges {
		e.Properties = copyProps(e.Properties)
		s.edges[k] = e
	}
	return s
}

// Restore discards all state and reinstates the snapshot.
func (g *Graph) Restore(s Snapshot) {
	g.nodes = make(map[string]Node, len(s.nodes))
	g.nodeOrder = append(g.nodeOrder[:0:0], s.nodeOrder...)
	g.edges = make(map[edgeKey]Edge, len(s.edges))
	g.edgeOrder = append(g.edgeOrder[:0:0], s.edgeOrder...)
	for id, n := range s.nodes {
		n.Properties = copyProps(n.Properties)
		g.nodes[id] = n
	}
	for k, e := range s.edges {
		e.Properties = copyProps(e.Properties)
		g.edges[k] = e
	}
}

// Export is the serializable form of a graph.
type Export struct {
	CampaignID string `json:"campaign_id"`
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
}

// ExportState returns the full graph in insertion order.
func (g *Graph) ExportState() Export {
	return Export{
		CampaignID: g.campaignID,
		Nodes:      g.Nodes(),
		Edges:      g.Edges(),
	}
}

// ImportState clears the graph and loads the exported state. Edges whose
// endpoints are missing from the node set are rejected.
func (g *Graph) ImportState(e Export) error {
	g.nodes = make(map[string]Node, len(e.Nodes))
	g.nodeOrder = g.nodeOrder[:0]
	g.edges = make(map[edgeKey]Edge, len(e.Edges))
	g.edgeOrder = g.edgeOrder[:0]

	for _, n := range e.Nodes {
		if !ValidNodeType(n.Type) {
			return fmt.Errorf("knowledge: import node %q type %q: %w", n.ID, n.Type, lorerr.ErrGraphInvariant)
		}
		n.Importance = clampImportance(n.Importance)
		g.nodes[n.ID] = n
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}
	for _, ed := range e.Edges {
		if !ValidEdgeType(ed.Type) {
			return fmt.Errorf("knowledge: import edge type %q: %w", ed.Type, lorerr.ErrGraphInvariant)
		}
		if _, ok := g.nodes[ed.Source]; !ok {
			return fmt.Errorf("knowledge: import edge source %q not in node set: %w", ed.Source, lorerr.ErrGraphInvariant)
		}
		if _, ok := g.nodes[ed.Target]; !ok {
			return fmt.Errorf("knowledge: import edge target %q not in node set: %w", ed.Target, lorerr.ErrGraphInvariant)
		}
		k := edgeKey{source: ed.Source, target: ed.Target, typ: ed.Type}
		if _, dup := g.edges[k]; !dup {
			g.edgeOrder = append(g.edgeOrder, k)
		}
		g.edges[k] = ed
	}
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func copyProps(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func removeString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
