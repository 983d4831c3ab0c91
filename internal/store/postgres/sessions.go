package postgres

import (
	"context"
	"fmt"

	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// CreateSession implements [store.Store]. The UNIQUE constraint on
// (campaign_id, session_number) rejects concurrent writers racing for the
// same session number.
func (s *Store) CreateSession(ctx context.Context, sess *store.Session) error {
	doc, err := marshalDoc(sess)
	if err != nil {
		return fmt.Errorf("sessions: create: %w", err)
	}

	const q = `
		INSERT INTO sessions (id, campaign_id, session_number, data)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.Exec(ctx, q, sess.ID, sess.CampaignID, sess.SessionNumber, doc); err != nil {
		return fmt.Errorf("sessions: create: %w", err)
	}
	return nil
}

// GetSession implements [store.Store]. Returns (nil, nil) when the session
// does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (*store.Session, error) {
	const q = `SELECT data FROM sessions WHERE id = $1`

	sess, err := scanDoc[store.Session](s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("sessions: get: %w", err)
	}
	return sess, nil
}

// UpdateSession implements [store.Store]. Returns an error when the session
// does not exist.
func (s *Store) UpdateSession(ctx context.Context, sess *store.Session) error {
	doc, err := marshalDoc(sess)
	if err != nil {
		return fmt.Errorf("sessions: update: %w", err)
	}

	const q = `UPDATE sessions SET data = $2 WHERE id = $1`

	tag, err := s.db.Exec(ctx, q, sess.ID, doc)
	if err != nil {
		return fmt.Errorf("sessions: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sessions: update: session %q not found", sess.ID)
	}
	return nil
}

// ListSessions implements [store.Store]. Sessions are ordered by session
// number ascending.
func (s *Store) ListSessions(ctx context.Context, campaignID string) ([]*store.Session, error) {
	const q = `
		SELECT data
		FROM   sessions
		WHERE  campaign_id = $1
		ORDER  BY session_number`

	rows, err := s.db.Query(ctx, q, campaignID)
	if err != nil {
		return nil, fmt.Errorf("sessions: list: %w", err)
	}
	out, err := collectDocs[store.Session](rows)
	if err != nil {
		return nil, fmt.Errorf("sessions: list: %w", err)
	}
	return out, nil
}

// NextSessionNumber implements [store.Store]. It returns one past the
// highest session number recorded for the campaign, starting at 1.
func (s *Store) NextSessionNumber(ctx context.Context, campaignID string) (int, error) {
	const q = `
		SELECT COALESCE(MAX(session_number), 0) + 1
		FROM   sessions
		WHERE  campaign_id = $1`

	var n int
	if err := s.db.QueryRow(ctx, q, campaignID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sessions: next number: %w", err)
	}
	return n, nil
}
