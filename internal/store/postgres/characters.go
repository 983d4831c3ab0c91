package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// CreateCharacter implements [store.Store]. An existing record with the same
// ID is completely replaced.
func (s *Store) CreateCharacter(ctx context.Context, c *store.Character) error {
	doc, err := marshalDoc(c)
	if err != nil {
		return fmt.Errorf("characters: create: %w", err)
	}

	const q = `
		INSERT INTO characters (id, campaign_id, character_type, is_alive, created_at, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		    character_type = EXCLUDED.character_type,
		    is_alive       = EXCLUDED.is_alive,
		    data           = EXCLUDED.data`

	if _, err := s.db.Exec(ctx, q, c.ID, c.CampaignID, c.Type, c.IsAlive, c.CreatedAt, doc); err != nil {
		return fmt.Errorf("characters: create: %w", err)
	}
	return nil
}

// GetCharacter implements [store.Store]. Returns (nil, nil) when the
// character does not exist.
func (s *Store) GetCharacter(ctx context.Context, id string) (*store.Character, error) {
	const q = `SELECT data FROM characters WHERE id = $1`

	c, err := scanDoc[store.Character](s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("characters: get: %w", err)
	}
	return c, nil
}

// UpdateCharacter implements [store.Store]. Returns an error when the
// character does not exist.
func (s *Store) UpdateCharacter(ctx context.Context, c *store.Character) error {
	doc, err := marshalDoc(c)
	if err != nil {
		return fmt.Errorf("characters: update: %w", err)
	}

	const q = `
		UPDATE characters
		SET    character_type = $2, is_alive = $3, data = $4
		WHERE  id = $1`

	tag, err := s.db.Exec(ctx, q, c.ID, c.Type, c.IsAlive, doc)
	if err != nil {
		return fmt.Errorf("characters: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("characters: update: character %q not found", c.ID)
	}
	return nil
}

// DeleteCharacter implements [store.Store]. Deleting a non-existent
// character is not an error.
func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	const q = `DELETE FROM characters WHERE id = $1`
	if _, err := s.db.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("characters: delete: %w", err)
	}
	return nil
}

// ListCharacters implements [store.Store]. All non-zero filter fields are
// applied as AND conditions. Characters are ordered by creation time.
func (s *Store) ListCharacters(ctx context.Context, campaignID string, f store.CharacterFilter) ([]*store.Character, error) {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"campaign_id = " + next(campaignID)}
	if f.Type != "" {
		conditions = append(conditions, "character_type = "+next(string(f.Type)))
	}
	if f.AliveOnly {
		conditions = append(conditions, "is_alive")
	}

	q := "SELECT data\nFROM   characters\nWHERE  " + strings.Join(conditions, "\n  AND  ") +
		"\nORDER  BY created_at, id"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("characters: list: %w", err)
	}
	out, err := collectDocs[store.Character](rows)
	if err != nil {
		return nil, fmt.Errorf("characters: list: %w", err)
	}
	return out, nil
}
