package postgres

import (
	"context"
	"fmt"

	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// CreateCampaign implements [store.Store]. It upserts the campaign; an
// existing record with the same ID is completely replaced.
func (s *Store) CreateCampaign(ctx context.Context, c *store.Campaign) error {
	doc, err := marshalDoc(c)
	if err != nil {
		return fmt.Errorf("campaigns: create: %w", err)
	}

	const q = `
		INSERT INTO campaigns (id, name, created_at, updated_at, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
		    name       = EXCLUDED.name,
		    updated_at = EXCLUDED.updated_at,
		    data       = EXCLUDED.data`

	if _, err := s.db.Exec(ctx, q, c.ID, c.Name, c.CreatedAt, c.UpdatedAt, doc); err != nil {
		return fmt.Errorf("campaigns: create: %w", err)
	}
	return nil
}

// GetCampaign implements [store.Store]. Returns (nil, nil) when the campaign
// does not exist.
func (s *Store) GetCampaign(ctx context.Context, id string) (*store.Campaign, error) {
	const q = `SELECT data FROM campaigns WHERE id = $1`

	c, err := scanDoc[store.Campaign](s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("campaigns: get: %w", err)
	}
	return c, nil
}

// UpdateCampaign implements [store.Store]. Returns an error when the
// campaign does not exist.
func (s *Store) UpdateCampaign(ctx context.Context, c *store.Campaign) error {
	doc, err := marshalDoc(c)
	if err != nil {
		return fmt.Errorf("campaigns: update: %w", err)
	}

	const q = `
		UPDATE campaigns
		SET    name = $2, updated_at = $3, data = $4
		WHERE  id = $1`

	tag, err := s.db.Exec(ctx, q, c.ID, c.Name, c.UpdatedAt, doc)
	if err != nil {
		return fmt.Errorf("campaigns: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("campaigns: update: campaign %q not found", c.ID)
	}
	return nil
}

// DeleteCampaign implements [store.Store]. Sessions, characters, locations,
// encounters, story events, and knowledge graph rows cascade-delete with the
// campaign. Deleting a non-existent campaign is not an error.
func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	const q = `DELETE FROM campaigns WHERE id = $1`
	if _, err := s.db.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("campaigns: delete: %w", err)
	}
	return nil
}

// ListCampaigns implements [store.Store]. Campaigns are ordered by creation
// time ascending.
func (s *Store) ListCampaigns(ctx context.Context, offset, limit int) ([]*store.Campaign, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT data
		FROM   campaigns
		ORDER  BY created_at, id
		OFFSET $1
		LIMIT  $2`

	rows, err := s.db.Query(ctx, q, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list: %w", err)
	}
	out, err := collectDocs[store.Campaign](rows)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list: %w", err)
	}
	return out, nil
}

// CampaignCounts implements [store.Store]. It aggregates the session,
// character, and location counts in a single round-trip.
func (s *Store) CampaignCounts(ctx context.Context, id string) (store.CampaignCounts, error) {
	const q = `
		SELECT
		    (SELECT count(*) FROM sessions   WHERE campaign_id = $1),
		    (SELECT count(*) FROM characters WHERE campaign_id = $1),
		    (SELECT count(*) FROM locations  WHERE campaign_id = $1)`

	var counts store.CampaignCounts
	if err := s.db.QueryRow(ctx, q, id).Scan(&counts.Sessions, &counts.Characters, &counts.Locations); err != nil {
		return store.CampaignCounts{}, fmt.Errorf("campaigns: counts: %w", err)
	}
	return counts, nil
}
