package httpapi

import (
	"fmt"
	"net/http"

	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
)

// handleKnowledgeDump returns the full graph export plus its statistics.
func (s *Server) handleKnowledgeDump(w http.ResponseWriter, r *http.Request) {
	var export knowledge.Export
	var stats knowledge.Stats
	err := s.graphs.WithGraph(r.Context(), r.PathValue("cid"), func(g *knowledge.Graph) error {
		export = g.ExportState()
		stats = g.Statistics()
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"graph": export,
		"stats": stats,
	})
}

// handleKnowledgeSearch matches nodes by name and description substrings.
// With semantic=true and a configured embeddings provider, results are
// ranked by embedding similarity instead.
func (s *Server) handleKnowledgeSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	limit := queryInt(r, "limit", 10)
	cid := r.PathValue("cid")

	if q.Get("semantic") == "true" {
		if s.semantic == nil {
			writeError(w, r, fmt.Errorf("httpapi: semantic search requires an embeddings provider: %w", lorerr.ErrInvalidInput))
			return
		}
		nodes, err := s.semantic(r.Context(), cid, query, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": nodes, "semantic": true})
		return
	}

	var nodes []knowledge.Node
	err := s.graphs.WithGraph(r.Context(), cid, func(g *knowledge.Graph) error {
		var err error
		nodes, err = g.Search(query, knowledge.NodeType(q.Get("type")), limit)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": nodes})
}

func (s *Server) handleKnowledgeTimeline(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	var nodes []knowledge.Node
	err := s.graphs.WithGraph(r.Context(), r.PathValue("cid"), func(g *knowledge.Graph) error {
		nodes = g.Timeline(limit)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeline": nodes})
}

// handleKnowledgeNode returns one node with its direct connections, and
// optionally the shortest path to another node via ?path_to=.
func (s *Server) handleKnowledgeNode(w http.ResponseWriter, r *http.Request) {
	nid := r.PathValue("nid")
	pathTo := r.URL.Query().Get("path_to")

	var node knowledge.Node
	var neighbors []knowledge.Neighbor
	var path []knowledge.Node
	var pathFound bool

	err := s.graphs.WithGraph(r.Context(), r.PathValue("cid"), func(g *knowledge.Graph) error {
		var ok bool
		node, ok = g.Entity(nid)
		if !ok {
			return fmt.Errorf("httpapi: knowledge node %q: %w", nid, lorerr.ErrNotFound)
		}
		var err error
		neighbors, err = g.Neighbors(nid, knowledge.NeighborOptions{Depth: 1})
		if err != nil {
			return err
		}
		if pathTo != "" {
			path, pathFound = g.Path(nid, pathTo)
		}
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := map[string]any{
		"node":        node,
		"connections": neighbors,
	}
	if pathTo != "" {
		resp["path"] = path
		resp["path_found"] = pathFound
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleKnowledgeContext(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SeedIDs  []string `json:"seed_ids"`
		MaxDepth int      `json:"max_depth"`
		MaxNodes int      `json:"max_nodes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.MaxDepth == 0 {
		req.MaxDepth = 2
	}
	if req.MaxNodes == 0 {
		req.MaxNodes = 30
	}

	var rendered string
	err := s.graphs.WithGraph(r.Context(), r.PathValue("cid"), func(g *knowledge.Graph) error {
		rendered = g.SubgraphForPrompt(req.SeedIDs, req.MaxDepth, req.MaxNodes)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"context": rendered})
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID          string         `json:"id"`
		Type        string         `json:"type"`
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Properties  map[string]any `json:"properties"`
		Importance  int            `json:"importance"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var node knowledge.Node
	err := s.graphs.WithGraphRollback(r.Context(), r.PathValue("cid"), func(g *knowledge.Graph) error {
		var err error
		node, err = g.AddEntity(knowledge.EntityInput{
			ID:          req.ID,
			Type:        knowledge.NodeType(req.Type),
			Name:        req.Name,
			Description: req.Description,
			Properties:  req.Properties,
			Importance:  req.Importance,
		})
		if err != nil {
			return err
		}
		return g.SaveTo(r.Context(), s.store)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceID   string         `json:"source_id"`
		TargetID   string         `json:"target_id"`
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var edge knowledge.Edge
	err := s.graphs.WithGraphRollback(r.Context(), r.PathValue("cid"), func(g *knowledge.Graph) error {
		var err error
		edge, err = g.AddRelationship(req.SourceID, req.TargetID, knowledge.EdgeType(req.Type), req.Properties)
		if err != nil {
			return err
		}
		return g.SaveTo(r.Context(), s.store)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}
