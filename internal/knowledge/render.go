package knowledge

import (
	"strings"
)

// Sentinel strings returned by [Graph.SubgraphForPrompt]. Services pass them
// to the model verbatim, so the wording is fixed.
const (
	NoContextSentinel  = "No specific context available."
	NoEntitiesSentinel = "No relevant entities found in the knowledge graph."
)

// promptSections fixes the section order and per-section caps of the
// rendered context block.
var promptSections = []struct {
	title string
	typ   NodeType
	cap   int
}{
	{"CHARACTERS", NodeCharacter, 0},
	{"LOCATIONS", NodeLocation, 0},
	{"FACTIONS", NodeFaction, 0},
	{"NOTABLE ITEMS", NodeItem, 0},
	{"RECENT EVENTS", NodeEvent, 10},
	{"ACTIVE QUESTS", NodeQuest, 0},
	{"WORLD LORE", NodeLore, 0},
}

// maxRenderedEdges caps the KEY RELATIONSHIPS section.
const maxRenderedEdges = 20

// SubgraphForPrompt renders the neighborhood of seedIDs as the plain-text
// context block fed to the model. The output is deterministic for a given
// graph state: nodes are bucketed by type into fixed sections, then every
// edge whose endpoints both survived the node cap is listed under KEY
// RELATIONSHIPS.
//
// Empty seedIDs yields [NoContextSentinel]; a traversal that reaches no
// nodes (including maxNodes <= 0) yields [NoEntitiesSentinel].
func (g *Graph) SubgraphForPrompt(seedIDs []string, maxDepth, maxNodes int) string {
	if len(seedIDs) == 0 {
		return NoContextSentinel
	}

	included := g.collectSubgraph(seedIDs, maxDepth, maxNodes)
	if len(included) == 0 {
		return NoEntitiesSentinel
	}

	var sections []string
	for _, sec := range promptSections {
		var lines []string
		for _, id := range g.nodeOrder {
			if _, ok := included[id]; !ok {
				continue
			}
			n := g.nodes[id]
			if n.Type != sec.typ {
				continue
			}
			lines = append(lines, renderNodeLine(n))
			if sec.cap > 0 && len(lines) == sec.cap {
				break
			}
		}
		if len(lines) > 0 {
			sections = append(sections, sec.title+":\n"+strings.Join(lines, "\n"))
		}
	}

	var edgeLines []string
	for _, k := range g.edgeOrder {
		if _, ok := included[k.source]; !ok {
			continue
		}
		if _, ok := included[k.target]; !ok {
			continue
		}
		edgeLines = append(edgeLines, renderEdgeLine(g.nodes[k.source], g.nodes[k.target], g.edges[k]))
		if len(edgeLines) == maxRenderedEdges {
			break
		}
	}
	if len(edgeLines) > 0 {
		sections = append(sections, "KEY RELATIONSHIPS:\n"+strings.Join(edgeLines, "\n"))
	}

	if len(sections) == 0 {
		return NoEntitiesSentinel
	}
	return strings.Join(sections, "\n\n")
}

// collectSubgraph breadth-first expands from the seeds up to maxDepth hops,
// stopping once maxNodes nodes are included. Seeds that exist are always
// included first.
func (g *Graph) collectSubgraph(seedIDs []string, maxDepth, maxNodes int) map[string]struct{} {
	included := make(map[string]struct{})
	if maxNodes <= 0 {
		return included
	}

	var frontier []string
	for _, id := range seedIDs {
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		if _, dup := included[id]; dup {
			continue
		}
		included[id] = struct{}{}
		frontier = append(frontier, id)
	}

	for depth := 0; depth < maxDepth && len(frontier) > 0 && len(included) < maxNodes; depth++ {
		var next []string
		for _, cur := range frontier {
			for _, k := range g.edgeOrder {
				if len(included) >= maxNodes {
					break
				}
				var other string
				switch cur {
				case k.source:
					other = k.target
				case k.target:
					other = k.source
				default:
					continue
				}
				if _, seen := included[other]; seen {
					continue
				}
				included[other] = struct{}{}
				next = append(next, other)
			}
		}
		frontier = next
	}
	return included
}

func renderNodeLine(n Node) string {
	if n.Description == "" {
		return "- " + n.Name
	}
	return "- " + n.Name + ": " + n.Description
}

func renderEdgeLine(src, dst Node, e Edge) string {
	verb := strings.ReplaceAll(string(e.Type), "_", " ")
	line := "- " + src.Name + " " + verb + " " + dst.Name
	if sentiment, ok := e.Properties["sentiment"].(string); ok && sentiment != "" {
		line += " (" + sentiment + ")"
	}
	return line
}
