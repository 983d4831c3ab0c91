// Package postgres provides the PostgreSQL-backed implementation of
// [store.Store] and [knowledge.Persister].
//
// Campaign records and their children are stored as JSONB documents with the
// filterable columns (ownership, type, ordering) broken out for indexing.
// Knowledge graph nodes and edges get fully relational tables so graph
// persistence stays non-destructive: SaveGraph upserts by identity and never
// deletes rows absent from the snapshot. The pgvector extension must be
// available; [Migrate] installs it via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	st, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//	defer st.Close()
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlCampaigns = `
CREATE TABLE IF NOT EXISTS campaigns (
    id          TEXT         PRIMARY KEY,
    name        TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    data        JSONB        NOT NULL DEFAULT '{}'
);
`

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id              TEXT         PRIMARY KEY,
    campaign_id     TEXT         NOT NULL REFERENCES campaigns (id) ON DELETE CASCADE,
    session_number  INT          NOT NULL,
    data            JSONB        NOT NULL DEFAULT '{}',
    UNIQUE (campaign_id, session_number)
);

CREATE INDEX IF NOT EXISTS idx_sessions_campaign
    ON sessions (campaign_id);
`

const ddlLocations = `
CREATE TABLE IF NOT EXISTS locations (
    id           TEXT         PRIMARY KEY,
    campaign_id  TEXT         NOT NULL REFERENCES campaigns (id) ON DELETE CASCADE,
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    data         JSONB        NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_locations_campaign
    ON locations (campaign_id);
`

const ddlCharacters = `
CREATE TABLE IF NOT EXISTS characters (
    id              TEXT         PRIMARY KEY,
    campaign_id     TEXT         NOT NULL REFERENCES campaigns (id) ON DELETE CASCADE,
    character_type  TEXT         NOT NULL,
    is_alive        BOOLEAN      NOT NULL DEFAULT TRUE,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now(),
    data            JSONB        NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_characters_campaign
    ON characters (campaign_id);

CREATE INDEX IF NOT EXISTS idx_characters_type
    ON characters (campaign_id, character_type);
`

const ddlStoryEvents = `
CREATE TABLE IF NOT EXISTS story_events (
    id              TEXT         PRIMARY KEY,
    session_id      TEXT         NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    sequence_order  INT          NOT NULL,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now(),
    data            JSONB        NOT NULL DEFAULT '{}',
    UNIQUE (session_id, sequence_order)
);

CREATE INDEX IF NOT EXISTS idx_story_events_session
    ON story_events (session_id, sequence_order);
`

const ddlEncounters = `
CREATE TABLE IF NOT EXISTS encounters (
    id          TEXT         PRIMARY KEY,
    session_id  TEXT         NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    data        JSONB        NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_encounters_session
    ON encounters (session_id);
`

const ddlKnowledgeEdges = `
CREATE TABLE IF NOT EXISTS knowledge_edges (
    campaign_id  TEXT         NOT NULL REFERENCES campaigns (id) ON DELETE CASCADE,
    source_id    TEXT         NOT NULL,
    target_id    TEXT         NOT NULL,
    edge_type    TEXT         NOT NULL,
    properties   JSONB        NOT NULL DEFAULT '{}',
    is_active    BOOLEAN      NOT NULL DEFAULT TRUE,
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (campaign_id, source_id, target_id, edge_type)
);

CREATE INDEX IF NOT EXISTS idx_knowledge_edges_source
    ON knowledge_edges (campaign_id, source_id);

CREATE INDEX IF NOT EXISTS idx_knowledge_edges_target
    ON knowledge_edges (campaign_id, target_id);
`

// ddlKnowledgeNodes returns the knowledge node DDL with the embedding
// dimension substituted. The dimension is baked into the column type at
// schema creation time.
func ddlKnowledgeNodes(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS knowledge_nodes (
    campaign_id  TEXT         NOT NULL REFERENCES campaigns (id) ON DELETE CASCADE,
    id           TEXT         NOT NULL,
    node_type    TEXT         NOT NULL,
    name         TEXT         NOT NULL,
    description  TEXT         NOT NULL DEFAULT '',
    properties   JSONB        NOT NULL DEFAULT '{}',
    importance   INT          NOT NULL DEFAULT 5,
    embedding    vector(%d),
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (campaign_id, id)
);

CREATE INDEX IF NOT EXISTS idx_knowledge_nodes_type
    ON knowledge_nodes (campaign_id, node_type);

CREATE INDEX IF NOT EXISTS idx_knowledge_nodes_embedding
    ON knowledge_nodes USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required tables, indexes, and extensions
// exist. It is idempotent and safe to call on every application start.
//
// embeddingDimensions must match the embedding model used for semantic node
// search (e.g., 1536 for OpenAI text-embedding-3-small). Changing it after
// the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlCampaigns,
		ddlSessions,
		ddlLocations,
		ddlCharacters,
		ddlStoryEvents,
		ddlEncounters,
		ddlKnowledgeNodes(embeddingDimensions),
		ddlKnowledgeEdges,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
