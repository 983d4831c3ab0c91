package store

import (
	"context"

	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
)

// CharacterFilter narrows a character listing. Zero values match everything.
type CharacterFilter struct {
	Type      CharacterType
	AliveOnly bool
}

// EventPage selects a window of a session's story feed, ordered by
// SequenceOrder ascending.
type EventPage struct {
	Offset int
	Limit  int
}

// Store is the relational persistence boundary. Lookups by ID return
// (nil, nil) when the record does not exist; callers translate that into
// a not-found error at the service layer.
//
// Store also persists knowledge graph state via the embedded
// [knowledge.Persister]: SaveGraph upserts nodes and edges and never
// deletes rows absent from the snapshot.
type Store interface {
	knowledge.Persister

	// Campaigns.
	CreateCampaign(ctx context.Context, c *Campaign) error
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	UpdateCampaign(ctx context.Context, c *Campaign) error
	DeleteCampaign(ctx context.Context, id string) error
	ListCampaigns(ctx context.Context, offset, limit int) ([]*Campaign, error)
	CampaignCounts(ctx context.Context, id string) (CampaignCounts, error)

	// Sessions.
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error
	ListSessions(ctx context.Context, campaignID string) ([]*Session, error)
	NextSessionNumber(ctx context.Context, campaignID string) (int, error)

	// Characters.
	CreateCharacter(ctx context.Context, c *Character) error
	GetCharacter(ctx context.Context, id string) (*Character, error)
	UpdateCharacter(ctx context.Context, c *Character) error
	DeleteCharacter(ctx context.Context, id string) error
	ListCharacters(ctx context.Context, campaignID string, f CharacterFilter) ([]*Character, error)

	// Locations.
	CreateLocation(ctx context.Context, l *Location) error
	GetLocation(ctx context.Context, id string) (*Location, error)
	UpdateLocation(ctx context.Context, l *Location) error
	DeleteLocation(ctx context.Context, id string) error
	ListLocations(ctx context.Context, campaignID string) ([]*Location, error)

	// Story events.
	CreateStoryEvent(ctx context.Context, e *StoryEvent) error
	GetStoryEvent(ctx context.Context, id string) (*StoryEvent, error)
	UpdateStoryEvent(ctx context.Context, e *StoryEvent) error
	ListStoryEvents(ctx context.Context, sessionID string, page EventPage) ([]*StoryEvent, error)
	MaxSequenceOrder(ctx context.Context, sessionID string) (int, error)

	// Encounters.
	CreateEncounter(ctx context.Context, e *Encounter) error
	GetEncounter(ctx context.Context, id string) (*Encounter, error)
	UpdateEncounter(ctx context.Context, e *Encounter) error
	ListEncounters(ctx context.Context, sessionID string) ([]*Encounter, error)

	// WithTx runs fn inside a single transaction. The Store passed to fn
	// routes every call through that transaction; any error rolls it back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
