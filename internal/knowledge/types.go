// Package knowledge implements the in-memory campaign knowledge graph: a
// directed labeled graph of world entities (characters, locations, items,
// factions, quests, events, lore) and the relationships between them.
//
// One Graph holds exactly one campaign's state. Multi-campaign access goes
// through [Registry], which serializes work per campaign while letting
// different campaigns progress in parallel. Persistence is delegated to a
// [Persister]; saves are non-destructive upserts so concurrent writers never
// orphan each other's rows.
package knowledge

import (
	"time"
)

// NodeType classifies a graph entity.
type NodeType string

// The full closed set of node types. Anything else is rejected.
const (
	NodeCharacter NodeType = "character"
	NodeLocation  NodeType = "location"
	NodeEvent     NodeType = "event"
	NodeItem      NodeType = "item"
	NodeFaction   NodeType = "faction"
	NodeQuest     NodeType = "quest"
	NodeLore      NodeType = "lore"
)

// nodeTypes is the membership set for validation.
var nodeTypes = map[NodeType]struct{}{
	NodeCharacter: {},
	NodeLocation:  {},
	NodeEvent:     {},
	NodeItem:      {},
	NodeFaction:   {},
	NodeQuest:     {},
	NodeLore:      {},
}

// ValidNodeType reports whether t is a known node type.
func ValidNodeType(t NodeType) bool {
	_, ok := nodeTypes[t]
	return ok
}

// NodeTypes returns all known node types in canonical order.
func NodeTypes() []NodeType {
	return []NodeType{
		NodeCharacter, NodeLocation, NodeEvent, NodeItem,
		NodeFaction, NodeQuest, NodeLore,
	}
}

// EdgeType classifies a relationship between two entities.
type EdgeType string

// The full closed set of edge types.
const (
	EdgeLocatedIn      EdgeType = "located_in"
	EdgeOwns           EdgeType = "owns"
	EdgeKnows          EdgeType = "knows"
	EdgeMemberOf       EdgeType = "member_of"
	EdgeParticipatedIn EdgeType = "participated_in"
	EdgeOccurredAt     EdgeType = "occurred_at"
	EdgeLeadsTo        EdgeType = "leads_to"
	EdgeRequires       EdgeType = "requires"
	EdgeConnectedTo    EdgeType = "connected_to"
	EdgeContains       EdgeType = "contains"
	EdgeCreatedBy      EdgeType = "created_by"
	EdgeDestroyedBy    EdgeType = "destroyed_by"
	EdgeAlliedWith     EdgeType = "allied_with"
	EdgeEnemyOf        EdgeType = "enemy_of"
	EdgeRelatedTo      EdgeType = "related_to"
	EdgePartOf         EdgeType = "part_of"
	EdgeGaveTo         EdgeType = "gave_to"
	EdgeReceivedFrom   EdgeType = "received_from"
)

var edgeTypes = map[EdgeType]struct{}{
	EdgeLocatedIn: {}, EdgeOwns: {}, EdgeKnows: {}, EdgeMemberOf: {},
	EdgeParticipatedIn: {}, EdgeOccurredAt: {}, EdgeLeadsTo: {}, EdgeRequires: {},
	EdgeConnectedTo: {}, EdgeContains: {}, EdgeCreatedBy: {}, EdgeDestroyedBy: {},
	EdgeAlliedWith: {}, EdgeEnemyOf: {}, EdgeRelatedTo: {}, EdgePartOf: {},
	EdgeGaveTo: {}, EdgeReceivedFrom: {},
}

// ValidEdgeType reports whether t is a known edge type.
func ValidEdgeType(t EdgeType) bool {
	_, ok := edgeTypes[t]
	return ok
}

// Node is one entity in the graph.
type Node struct {
	ID          string         `json:"id"`
	Type        NodeType       `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`

	// Importance ranks the entity for search and context rendering,
	// clamped to [1, 10].
	Importance int `json:"importance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edge is one directed relationship. At most one edge of a given type exists
// between any ordered pair of nodes.
type Edge struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       EdgeType       `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	IsActive   bool           `json:"is_active"`
}

// edgeKey identifies an edge uniquely within a graph.
type edgeKey struct {
	source string
	target string
	typ    EdgeType
}

// Direction selects edge orientation for traversal.
type Direction string

const (
	DirIncoming Direction = "incoming"
	DirOutgoing Direction = "outgoing"
	DirBoth     Direction = "both"
)

// Neighbor is a node reached by traversal together with the edge that
// reached it.
type Neighbor struct {
	Node     Node     `json:"node"`
	EdgeType EdgeType `json:"edge_type"`

	// Depth is the number of hops from the start node (1 for direct
	// neighbors).
	Depth int `json:"depth"`
}

// clampImportance constrains v to [1, 10], with 0 treated as unset.
func clampImportance(v int) int {
	if v == 0 {
		v = 5
	}
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
