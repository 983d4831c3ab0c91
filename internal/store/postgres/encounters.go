package postgres

import (
	"context"
	"fmt"

	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// CreateEncounter implements [store.Store]. An existing record with the same
// ID is completely replaced.
func (s *Store) CreateEncounter(ctx context.Context, e *store.Encounter) error {
	doc, err := marshalDoc(e)
	if err != nil {
		return fmt.Errorf("encounters: create: %w", err)
	}

	const q = `
		INSERT INTO encounters (id, session_id, created_at, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
		    data = EXCLUDED.data`

	if _, err := s.db.Exec(ctx, q, e.ID, e.SessionID, e.CreatedAt, doc); err != nil {
		return fmt.Errorf("encounters: create: %w", err)
	}
	return nil
}

// GetEncounter implements [store.Store]. Returns (nil, nil) when the
// encounter does not exist.
func (s *Store) GetEncounter(ctx context.Context, id string) (*store.Encounter, error) {
	const q = `SELECT data FROM encounters WHERE id = $1`

	e, err := scanDoc[store.Encounter](s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("encounters: get: %w", err)
	}
	return e, nil
}

// UpdateEncounter implements [store.Store]. Returns an error when the
// encounter does not exist.
func (s *Store) UpdateEncounter(ctx context.Context, e *store.Encounter) error {
	doc, err := marshalDoc(e)
	if err != nil {
		return fmt.Errorf("encounters: update: %w", err)
	}

	const q = `UPDATE encounters SET data = $2 WHERE id = $1`

	tag, err := s.db.Exec(ctx, q, e.ID, doc)
	if err != nil {
		return fmt.Errorf("encounters: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("encounters: update: encounter %q not found", e.ID)
	}
	return nil
}

// ListEncounters implements [store.Store]. Encounters are ordered by
// creation time ascending.
func (s *Store) ListEncounters(ctx context.Context, sessionID string) ([]*store.Encounter, error) {
	const q = `
		SELECT data
		FROM   encounters
		WHERE  session_id = $1
		ORDER  BY created_at, id`

	rows, err := s.db.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("encounters: list: %w", err)
	}
	out, err := collectDocs[store.Encounter](rows)
	if err != nil {
		return nil, fmt.Errorf("encounters: list: %w", err)
	}
	return out, nil
}
