package postgres

import (
	"context"
	"fmt"

	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// CreateLocation implements [store.Store]. An existing record with the same
// ID is completely replaced.
func (s *Store) CreateLocation(ctx context.Context, l *store.Location) error {
	doc, err := marshalDoc(l)
	if err != nil {
		return fmt.Errorf("locations: create: %w", err)
	}

	const q = `
		INSERT INTO locations (id, campaign_id, created_at, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
		    data = EXCLUDED.data`

	if _, err := s.db.Exec(ctx, q, l.ID, l.CampaignID, l.CreatedAt, doc); err != nil {
		return fmt.Errorf("locations: create: %w", err)
	}
	return nil
}

// GetLocation implements [store.Store]. Returns (nil, nil) when the location
// does not exist.
func (s *Store) GetLocation(ctx context.Context, id string) (*store.Location, error) {
	const q = `SELECT data FROM locations WHERE id = $1`

	l, err := scanDoc[store.Location](s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("locations: get: %w", err)
	}
	return l, nil
}

// UpdateLocation implements [store.Store]. Returns an error when the
// location does not exist.
func (s *Store) UpdateLocation(ctx context.Context, l *store.Location) error {
	doc, err := marshalDoc(l)
	if err != nil {
		return fmt.Errorf("locations: update: %w", err)
	}

	const q = `UPDATE locations SET data = $2 WHERE id = $1`

	tag, err := s.db.Exec(ctx, q, l.ID, doc)
	if err != nil {
		return fmt.Errorf("locations: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("locations: update: location %q not found", l.ID)
	}
	return nil
}

// DeleteLocation implements [store.Store]. Characters standing in the
// location have their reference cleared, child locations lose their parent
// pointer, and travel connections into the location are pruned. Deleting a
// non-existent location is not an error.
func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	const clearCharacters = `
		UPDATE characters
		SET    data = data - 'current_location_id'
		WHERE  data->>'current_location_id' = $1`

	const clearParents = `
		UPDATE locations
		SET    data = data - 'parent_location_id'
		WHERE  data->>'parent_location_id' = $1`

	const pruneConnections = `
		UPDATE locations
		SET    data = jsonb_set(data, '{connected_locations}', COALESCE(
		           (SELECT jsonb_agg(c)
		            FROM   jsonb_array_elements(data->'connected_locations') c
		            WHERE  c->>'location_id' <> $1),
		           '[]'::jsonb))
		WHERE  data->'connected_locations' @> jsonb_build_array(jsonb_build_object('location_id', $1::text))`

	const del = `DELETE FROM locations WHERE id = $1`

	return s.WithTx(ctx, func(txs store.Store) error {
		tx := txs.(*Store)
		for _, q := range []string{clearCharacters, clearParents, pruneConnections, del} {
			if _, err := tx.db.Exec(ctx, q, id); err != nil {
				return fmt.Errorf("locations: delete: %w", err)
			}
		}
		return nil
	})
}

// ListLocations implements [store.Store]. Locations are ordered by creation
// time ascending.
func (s *Store) ListLocations(ctx context.Context, campaignID string) ([]*store.Location, error) {
	const q = `
		SELECT data
		FROM   locations
		WHERE  campaign_id = $1
		ORDER  BY created_at, id`

	rows, err := s.db.Query(ctx, q, campaignID)
	if err != nil {
		return nil, fmt.Errorf("locations: list: %w", err)
	}
	out, err := collectDocs[store.Location](rows)
	if err != nil {
		return nil, fmt.Errorf("locations: list: %w", err)
	}
	return out, nil
}
