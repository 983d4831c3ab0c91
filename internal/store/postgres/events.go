package postgres

import (
	"context"
	"fmt"

	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// CreateStoryEvent implements [store.Store]. The UNIQUE constraint on
// (session_id, sequence_order) rejects writers racing for the same slot in
// the story feed.
func (s *Store) CreateStoryEvent(ctx context.Context, e *store.StoryEvent) error {
	doc, err := marshalDoc(e)
	if err != nil {
		return fmt.Errorf("story events: create: %w", err)
	}

	const q = `
		INSERT INTO story_events (id, session_id, sequence_order, created_at, data)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.db.Exec(ctx, q, e.ID, e.SessionID, e.SequenceOrder, e.CreatedAt, doc); err != nil {
		return fmt.Errorf("story events: create: %w", err)
	}
	return nil
}

// GetStoryEvent implements [store.Store]. Returns (nil, nil) when the event
// does not exist.
func (s *Store) GetStoryEvent(ctx context.Context, id string) (*store.StoryEvent, error) {
	const q = `SELECT data FROM story_events WHERE id = $1`

	e, err := scanDoc[store.StoryEvent](s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("story events: get: %w", err)
	}
	return e, nil
}

// UpdateStoryEvent implements [store.Store]. Returns an error when the
// event does not exist. Sequence order and session never change after
// creation; only the document is rewritten.
func (s *Store) UpdateStoryEvent(ctx context.Context, e *store.StoryEvent) error {
	doc, err := marshalDoc(e)
	if err != nil {
		return fmt.Errorf("story events: update: %w", err)
	}

	const q = `UPDATE story_events SET data = $2 WHERE id = $1`

	tag, err := s.db.Exec(ctx, q, e.ID, doc)
	if err != nil {
		return fmt.Errorf("story events: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("story events: update: event %q not found", e.ID)
	}
	return nil
}

// ListStoryEvents implements [store.Store]. Events are ordered by sequence
// ascending; page.Limit <= 0 means no limit.
func (s *Store) ListStoryEvents(ctx context.Context, sessionID string, page store.EventPage) ([]*store.StoryEvent, error) {
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT data
		FROM   story_events
		WHERE  session_id = $1
		ORDER  BY sequence_order
		OFFSET $2`
	args := []any{sessionID, offset}

	if page.Limit > 0 {
		args = append(args, page.Limit)
		q += fmt.Sprintf("\nLIMIT  $%d", len(args))
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("story events: list: %w", err)
	}
	out, err := collectDocs[store.StoryEvent](rows)
	if err != nil {
		return nil, fmt.Errorf("story events: list: %w", err)
	}
	return out, nil
}

// MaxSequenceOrder implements [store.Store]. Returns 0 for a session with no
// events yet.
func (s *Store) MaxSequenceOrder(ctx context.Context, sessionID string) (int, error) {
	const q = `
		SELECT COALESCE(MAX(sequence_order), 0)
		FROM   story_events
		WHERE  session_id = $1`

	var n int
	if err := s.db.QueryRow(ctx, q, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("story events: max sequence: %w", err)
	}
	return n, nil
}
