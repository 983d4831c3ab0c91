package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

var (
	_ store.Store         = (*Store)(nil)
	_ knowledge.Persister = (*Store)(nil)
)

// querier is the subset of pgx operations shared by *pgxpool.Pool and
// pgx.Tx, so the same query code serves both pooled and transactional calls.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EmbedFunc maps a batch of texts to embedding vectors, result[i] for
// texts[i]. Used to index knowledge nodes for semantic search.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Store is the PostgreSQL-backed store. All operations are safe for
// concurrent use.
type Store struct {
	pool  *pgxpool.Pool
	db    querier
	inTx  bool
	embed EmbedFunc
}

// EnableSemanticIndexing turns on automatic embedding of knowledge nodes:
// every [Store.SaveGraph] embeds the nodes that do not have a vector yet and
// writes them into the pgvector index. Indexing is best-effort; a failed
// embedding call never fails the save.
func (s *Store) EnableSemanticIndexing(embed EmbedFunc) {
	s.embed = embed
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, registers pgvector types on every connection, and runs
// [Migrate] so all required tables and extensions exist.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so vector columns can
	// be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool, db: pool}, nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool. Typically
// called via defer once the Store is no longer needed.
func (s *Store) Close() {
	s.pool.Close()
}

// WithTx implements [store.Store]. It begins a transaction, hands fn a Store
// bound to it, and commits when fn returns nil. Any error rolls the
// transaction back. Calling WithTx on a Store already inside a transaction
// runs fn against the same transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	txStore := &Store{pool: s.pool, db: tx, inTx: true, embed: s.embed}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit tx: %w", err)
	}
	return nil
}

// marshalDoc serializes a record into its JSONB document column.
func marshalDoc(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return raw, nil
}

// scanDoc deserializes a JSONB document column into a fresh record. Returns
// (nil, nil) when the row did not exist.
func scanDoc[T any](row pgx.Row) (*T, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return out, nil
}

// collectDocs scans a single-column result set of JSONB documents.
func collectDocs[T any](rows pgx.Rows) ([]*T, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*T, error) {
		var raw []byte
		if err := row.Scan(&raw); err != nil {
			return nil, err
		}
		v := new(T)
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*T{}
	}
	return out, nil
}

// isNoRows reports whether err is the pgx "no rows" sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
