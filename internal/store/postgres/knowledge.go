package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// ─── knowledge.Persister ─────────────────────────────────────────────────────

// LoadGraph implements [knowledge.Persister]. It returns the persisted graph
// state for the campaign; a campaign with no rows yields an empty state, not
// an error.
func (s *Store) LoadGraph(ctx context.Context, campaignID string) (knowledge.Export, error) {
	state := knowledge.Export{CampaignID: campaignID}

	const qNodes = `
		SELECT id, node_type, name, description, properties, importance, created_at, updated_at
		FROM   knowledge_nodes
		WHERE  campaign_id = $1
		ORDER  BY created_at, id`

	rows, err := s.db.Query(ctx, qNodes, campaignID)
	if err != nil {
		return state, fmt.Errorf("knowledge: load graph: query nodes: %w", err)
	}
	state.Nodes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (knowledge.Node, error) {
		var (
			n         knowledge.Node
			propsJSON []byte
		)
		if err := row.Scan(&n.ID, &n.Type, &n.Name, &n.Description, &propsJSON, &n.Importance, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return knowledge.Node{}, err
		}
		if len(propsJSON) > 0 {
			if err := json.Unmarshal(propsJSON, &n.Properties); err != nil {
				return knowledge.Node{}, fmt.Errorf("unmarshal node properties: %w", err)
			}
		}
		return n, nil
	})
	if err != nil {
		return state, fmt.Errorf("knowledge: load graph: scan nodes: %w", err)
	}

	const qEdges = `
		SELECT source_id, target_id, edge_type, properties, is_active, created_at
		FROM   knowledge_edges
		WHERE  campaign_id = $1
		ORDER  BY created_at, source_id, target_id`

	rows, err = s.db.Query(ctx, qEdges, campaignID)
	if err != nil {
		return state, fmt.Errorf("knowledge: load graph: query edges: %w", err)
	}
	state.Edges, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (knowledge.Edge, error) {
		var (
			e         knowledge.Edge
			propsJSON []byte
		)
		if err := row.Scan(&e.Source, &e.Target, &e.Type, &propsJSON, &e.IsActive, &e.CreatedAt); err != nil {
			return knowledge.Edge{}, err
		}
		if len(propsJSON) > 0 {
			if err := json.Unmarshal(propsJSON, &e.Properties); err != nil {
				return knowledge.Edge{}, fmt.Errorf("unmarshal edge properties: %w", err)
			}
		}
		return e, nil
	})
	if err != nil {
		return state, fmt.Errorf("knowledge: load graph: scan edges: %w", err)
	}

	return state, nil
}

// SaveGraph implements [knowledge.Persister]. Each node is upserted by ID
// and each edge by its (source, target, type) triple inside one transaction.
// Rows absent from the snapshot are left untouched, so a save never loses
// lore that another writer persisted.
func (s *Store) SaveGraph(ctx context.Context, campaignID string, state knowledge.Export) error {
	const qNode = `
		INSERT INTO knowledge_nodes
		    (campaign_id, id, node_type, name, description, properties, importance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (campaign_id, id) DO UPDATE SET
		    node_type   = EXCLUDED.node_type,
		    name        = EXCLUDED.name,
		    description = EXCLUDED.description,
		    properties  = EXCLUDED.properties,
		    importance  = EXCLUDED.importance,
		    updated_at  = EXCLUDED.updated_at`

	const qEdge = `
		INSERT INTO knowledge_edges
		    (campaign_id, source_id, target_id, edge_type, properties, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (campaign_id, source_id, target_id, edge_type) DO UPDATE SET
		    properties = EXCLUDED.properties,
		    is_active  = EXCLUDED.is_active`

	err := s.WithTx(ctx, func(txs store.Store) error {
		tx := txs.(*Store)

		for _, n := range state.Nodes {
			propsJSON, err := json.Marshal(n.Properties)
			if err != nil {
				return fmt.Errorf("knowledge: save graph: marshal node properties: %w", err)
			}
			if _, err := tx.db.Exec(ctx, qNode,
				campaignID, n.ID, n.Type, n.Name, n.Description, propsJSON, n.Importance, n.CreatedAt, n.UpdatedAt,
			); err != nil {
				return fmt.Errorf("knowledge: save graph: upsert node %q: %w", n.ID, err)
			}
		}

		for _, e := range state.Edges {
			propsJSON, err := json.Marshal(e.Properties)
			if err != nil {
				return fmt.Errorf("knowledge: save graph: marshal edge properties: %w", err)
			}
			if _, err := tx.db.Exec(ctx, qEdge,
				campaignID, e.Source, e.Target, e.Type, propsJSON, e.IsActive, e.CreatedAt,
			); err != nil {
				return fmt.Errorf("knowledge: save graph: upsert edge %s->%s: %w", e.Source, e.Target, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if s.embed != nil {
		s.indexUnembeddedNodes(ctx, campaignID, state.Nodes)
	}
	return nil
}

// indexUnembeddedNodes embeds the saved nodes that have no vector yet and
// writes them into the semantic index. Failures are logged and swallowed so
// a flaky embeddings backend never blocks graph persistence.
func (s *Store) indexUnembeddedNodes(ctx context.Context, campaignID string, nodes []knowledge.Node) {
	if len(nodes) == 0 {
		return
	}

	ids := make([]string, 0, len(nodes))
	byID := make(map[string]knowledge.Node, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
		byID[n.ID] = n
	}

	const q = `
		SELECT id
		FROM   knowledge_nodes
		WHERE  campaign_id = $1 AND id = ANY($2) AND embedding IS NULL`

	rows, err := s.db.Query(ctx, q, campaignID, ids)
	if err != nil {
		slog.WarnContext(ctx, "semantic indexing skipped", "campaign_id", campaignID, "error", err)
		return
	}
	pending, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		slog.WarnContext(ctx, "semantic indexing skipped", "campaign_id", campaignID, "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	texts := make([]string, len(pending))
	for i, id := range pending {
		n := byID[id]
		texts[i] = n.Name + ". " + n.Description
	}
	vecs, err := s.embed(ctx, texts)
	if err != nil || len(vecs) != len(pending) {
		slog.WarnContext(ctx, "node embedding failed", "campaign_id", campaignID, "nodes", len(pending), "error", err)
		return
	}

	for i, id := range pending {
		if err := s.IndexNodeEmbedding(ctx, campaignID, id, vecs[i]); err != nil {
			slog.WarnContext(ctx, "node embedding not indexed", "campaign_id", campaignID, "node_id", id, "error", err)
		}
	}
}

// ─── Semantic node index ─────────────────────────────────────────────────────

// NodeMatch pairs a knowledge node with its semantic similarity score.
// Higher scores indicate better matches.
type NodeMatch struct {
	Node  knowledge.Node `json:"node"`
	Score float64        `json:"score"`
}

// IndexNodeEmbedding stores the embedding vector for a persisted knowledge
// node so it becomes reachable via [Store.SemanticSearchNodes]. Returns an
// error when the node has not been persisted yet.
func (s *Store) IndexNodeEmbedding(ctx context.Context, campaignID, nodeID string, embedding []float32) error {
	const q = `
		UPDATE knowledge_nodes
		SET    embedding = $3
		WHERE  campaign_id = $1 AND id = $2`

	tag, err := s.db.Exec(ctx, q, campaignID, nodeID, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("knowledge: index embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("knowledge: index embedding: node %q not found", nodeID)
	}
	return nil
}

// SemanticSearchNodes returns the campaign's knowledge nodes closest to the
// query embedding by cosine distance, most similar first. The Score field is
// set to 1 - distance so higher scores indicate better matches. Nodes with
// no embedding are skipped.
func (s *Store) SemanticSearchNodes(ctx context.Context, campaignID string, embedding []float32, topK int) ([]NodeMatch, error) {
	if topK <= 0 {
		topK = 10
	}

	const q = `
		SELECT id, node_type, name, description, properties, importance, created_at, updated_at,
		       embedding <=> $2 AS distance
		FROM   knowledge_nodes
		WHERE  campaign_id = $1
		  AND  embedding IS NOT NULL
		ORDER  BY distance
		LIMIT  $3`

	rows, err := s.db.Query(ctx, q, campaignID, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("knowledge: semantic search: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (NodeMatch, error) {
		var (
			m         NodeMatch
			propsJSON []byte
			distance  float64
		)
		if err := row.Scan(
			&m.Node.ID, &m.Node.Type, &m.Node.Name, &m.Node.Description,
			&propsJSON, &m.Node.Importance, &m.Node.CreatedAt, &m.Node.UpdatedAt,
			&distance,
		); err != nil {
			return NodeMatch{}, err
		}
		if len(propsJSON) > 0 {
			if err := json.Unmarshal(propsJSON, &m.Node.Properties); err != nil {
				return NodeMatch{}, fmt.Errorf("unmarshal node properties: %w", err)
			}
		}
		m.Score = 1.0 - distance
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: semantic search: scan: %w", err)
	}
	if matches == nil {
		matches = []NodeMatch{}
	}
	return matches, nil
}
