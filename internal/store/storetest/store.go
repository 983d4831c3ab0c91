// Package storetest provides a functional in-memory [store.Store] for
// service tests. All data lives in maps guarded by a [sync.Mutex], records
// are deep-copied via JSON on the way in and out, and the Fail map injects
// errors per method name.
//
// Typical usage:
//
//	st := storetest.New()
//	st.Fail["GetCampaign"] = errors.New("boom")
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/lorekeeperhq/lorekeeper/internal/knowledge"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

// Store is an in-memory implementation of [store.Store]. The zero value is
// not usable; construct with [New].
type Store struct {
	mu sync.Mutex

	// Fail maps a method name to an error that method returns instead of
	// doing its work. Mutate only before handing the store to the code
	// under test.
	Fail map[string]error

	campaigns  map[string]*store.Campaign
	sessions   map[string]*store.Session
	characters map[string]*store.Character
	locations  map[string]*store.Location
	events     map[string][]*store.StoryEvent // keyed by session ID
	encounters map[string]*store.Encounter
	graphs     map[string]knowledge.Export // keyed by campaign ID

	// SavedGraphs counts SaveGraph calls per campaign.
	SavedGraphs map[string]int
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		Fail:        make(map[string]error),
		campaigns:   make(map[string]*store.Campaign),
		sessions:    make(map[string]*store.Session),
		characters:  make(map[string]*store.Character),
		locations:   make(map[string]*store.Location),
		events:      make(map[string][]*store.StoryEvent),
		encounters:  make(map[string]*store.Encounter),
		graphs:      make(map[string]knowledge.Export),
		SavedGraphs: make(map[string]int),
	}
}

func (s *Store) fail(method string) error {
	return s.Fail[method]
}

// clone deep-copies src into a fresh value of the same type.
func clone[T any](src *T) *T {
	if src == nil {
		return nil
	}
	raw, err := json.Marshal(src)
	if err != nil {
		panic(fmt.Sprintf("storetest: clone marshal: %v", err))
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		panic(fmt.Sprintf("storetest: clone unmarshal: %v", err))
	}
	return out
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// ─── Campaigns ───────────────────────────────────────────────────────────────

func (s *Store) CreateCampaign(_ context.Context, c *store.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateCampaign"); err != nil {
		return err
	}
	ensureID(&c.ID)
	s.campaigns[c.ID] = clone(c)
	return nil
}

func (s *Store) GetCampaign(_ context.Context, id string) (*store.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetCampaign"); err != nil {
		return nil, err
	}
	return clone(s.campaigns[id]), nil
}

func (s *Store) UpdateCampaign(_ context.Context, c *store.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateCampaign"); err != nil {
		return err
	}
	if _, ok := s.campaigns[c.ID]; !ok {
		return fmt.Errorf("storetest: campaign %s not found", c.ID)
	}
	s.campaigns[c.ID] = clone(c)
	return nil
}

func (s *Store) DeleteCampaign(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteCampaign"); err != nil {
		return err
	}
	delete(s.campaigns, id)
	for sid, sess := range s.sessions {
		if sess.CampaignID == id {
			delete(s.events, sid)
			delete(s.sessions, sid)
		}
	}
	for cid, ch := range s.characters {
		if ch.CampaignID == id {
			delete(s.characters, cid)
		}
	}
	for lid, l := range s.locations {
		if l.CampaignID == id {
			delete(s.locations, lid)
		}
	}
	delete(s.graphs, id)
	return nil
}

func (s *Store) ListCampaigns(_ context.Context, offset, limit int) ([]*store.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListCampaigns"); err != nil {
		return nil, err
	}
	all := make([]*store.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		all = append(all, clone(c))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return window(all, offset, limit), nil
}

func (s *Store) CampaignCounts(_ context.Context, id string) (store.CampaignCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var counts store.CampaignCounts
	if err := s.fail("CampaignCounts"); err != nil {
		return counts, err
	}
	for _, sess := range s.sessions {
		if sess.CampaignID == id {
			counts.Sessions++
		}
	}
	for _, ch := range s.characters {
		if ch.CampaignID == id {
			counts.Characters++
		}
	}
	for _, l := range s.locations {
		if l.CampaignID == id {
			counts.Locations++
		}
	}
	return counts, nil
}

// ─── Sessions ────────────────────────────────────────────────────────────────

func (s *Store) CreateSession(_ context.Context, sess *store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateSession"); err != nil {
		return err
	}
	ensureID(&sess.ID)
	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetSession"); err != nil {
		return nil, err
	}
	return clone(s.sessions[id]), nil
}

func (s *Store) UpdateSession(_ context.Context, sess *store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateSession"); err != nil {
		return err
	}
	if _, ok := s.sessions[sess.ID]; !ok {
		return fmt.Errorf("storetest: session %s not found", sess.ID)
	}
	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *Store) ListSessions(_ context.Context, campaignID string) ([]*store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListSessions"); err != nil {
		return nil, err
	}
	var out []*store.Session
	for _, sess := range s.sessions {
		if sess.CampaignID == campaignID {
			out = append(out, clone(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionNumber < out[j].SessionNumber })
	return out, nil
}

func (s *Store) NextSessionNumber(_ context.Context, campaignID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("NextSessionNumber"); err != nil {
		return 0, err
	}
	max := 0
	for _, sess := range s.sessions {
		if sess.CampaignID == campaignID && sess.SessionNumber > max {
			max = sess.SessionNumber
		}
	}
	return max + 1, nil
}

// ─── Characters ──────────────────────────────────────────────────────────────

func (s *Store) CreateCharacter(_ context.Context, c *store.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateCharacter"); err != nil {
		return err
	}
	ensureID(&c.ID)
	s.characters[c.ID] = clone(c)
	return nil
}

func (s *Store) GetCharacter(_ context.Context, id string) (*store.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetCharacter"); err != nil {
		return nil, err
	}
	return clone(s.characters[id]), nil
}

func (s *Store) UpdateCharacter(_ context.Context, c *store.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateCharacter"); err != nil {
		return err
	}
	if _, ok := s.characters[c.ID]; !ok {
		return fmt.Errorf("storetest: character %s not found", c.ID)
	}
	s.characters[c.ID] = clone(c)
	return nil
}

func (s *Store) DeleteCharacter(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteCharacter"); err != nil {
		return err
	}
	delete(s.characters, id)
	return nil
}

func (s *Store) ListCharacters(_ context.Context, campaignID string, f store.CharacterFilter) ([]*store.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListCharacters"); err != nil {
		return nil, err
	}
	var out []*store.Character
	for _, c := range s.characters {
		if c.CampaignID != campaignID {
			continue
		}
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		if f.AliveOnly && !c.IsAlive {
			continue
		}
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ─── Locations ───────────────────────────────────────────────────────────────

func (s *Store) CreateLocation(_ context.Context, l *store.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateLocation"); err != nil {
		return err
	}
	ensureID(&l.ID)
	s.locations[l.ID] = clone(l)
	return nil
}

func (s *Store) GetLocation(_ context.Context, id string) (*store.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetLocation"); err != nil {
		return nil, err
	}
	return clone(s.locations[id]), nil
}

func (s *Store) UpdateLocation(_ context.Context, l *store.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateLocation"); err != nil {
		return err
	}
	if _, ok := s.locations[l.ID]; !ok {
		return fmt.Errorf("storetest: location %s not found", l.ID)
	}
	s.locations[l.ID] = clone(l)
	return nil
}

func (s *Store) DeleteLocation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteLocation"); err != nil {
		return err
	}
	delete(s.locations, id)
	for _, c := range s.characters {
		if c.CurrentLocationID != nil && *c.CurrentLocationID == id {
			c.CurrentLocationID = nil
		}
	}
	return nil
}

func (s *Store) ListLocations(_ context.Context, campaignID string) ([]*store.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListLocations"); err != nil {
		return nil, err
	}
	var out []*store.Location
	for _, l := range s.locations {
		if l.CampaignID == campaignID {
			out = append(out, clone(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ─── Story events ────────────────────────────────────────────────────────────

func (s *Store) CreateStoryEvent(_ context.Context, e *store.StoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateStoryEvent"); err != nil {
		return err
	}
	ensureID(&e.ID)
	s.events[e.SessionID] = append(s.events[e.SessionID], clone(e))
	return nil
}

func (s *Store) GetStoryEvent(_ context.Context, id string) (*store.StoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetStoryEvent"); err != nil {
		return nil, err
	}
	for _, evs := range s.events {
		for _, e := range evs {
			if e.ID == id {
				return clone(e), nil
			}
		}
	}
	return nil, nil
}

func (s *Store) UpdateStoryEvent(_ context.Context, e *store.StoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateStoryEvent"); err != nil {
		return err
	}
	evs := s.events[e.SessionID]
	for i := range evs {
		if evs[i].ID == e.ID {
			evs[i] = clone(e)
			return nil
		}
	}
	return fmt.Errorf("storetest: story event %q not found", e.ID)
}

func (s *Store) ListStoryEvents(_ context.Context, sessionID string, page store.EventPage) ([]*store.StoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListStoryEvents"); err != nil {
		return nil, err
	}
	evs := s.events[sessionID]
	out := make([]*store.StoryEvent, 0, len(evs))
	for _, e := range evs {
		out = append(out, clone(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceOrder < out[j].SequenceOrder })
	return window(out, page.Offset, page.Limit), nil
}

func (s *Store) MaxSequenceOrder(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MaxSequenceOrder"); err != nil {
		return 0, err
	}
	max := 0
	for _, e := range s.events[sessionID] {
		if e.SequenceOrder > max {
			max = e.SequenceOrder
		}
	}
	return max, nil
}

// ─── Encounters ──────────────────────────────────────────────────────────────

func (s *Store) CreateEncounter(_ context.Context, e *store.Encounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateEncounter"); err != nil {
		return err
	}
	ensureID(&e.ID)
	s.encounters[e.ID] = clone(e)
	return nil
}

func (s *Store) GetEncounter(_ context.Context, id string) (*store.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetEncounter"); err != nil {
		return nil, err
	}
	return clone(s.encounters[id]), nil
}

func (s *Store) UpdateEncounter(_ context.Context, e *store.Encounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateEncounter"); err != nil {
		return err
	}
	if _, ok := s.encounters[e.ID]; !ok {
		return fmt.Errorf("storetest: encounter %s not found", e.ID)
	}
	s.encounters[e.ID] = clone(e)
	return nil
}

func (s *Store) ListEncounters(_ context.Context, sessionID string) ([]*store.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListEncounters"); err != nil {
		return nil, err
	}
	var out []*store.Encounter
	for _, e := range s.encounters {
		if e.SessionID == sessionID {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ─── Knowledge graph persistence ─────────────────────────────────────────────

func (s *Store) LoadGraph(_ context.Context, campaignID string) (knowledge.Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("LoadGraph"); err != nil {
		return knowledge.Export{}, err
	}
	if state, ok := s.graphs[campaignID]; ok {
		return state, nil
	}
	return knowledge.Export{CampaignID: campaignID}, nil
}

// SaveGraph merges the snapshot into the stored state: nodes and edges are
// upserted by identity, never deleted.
func (s *Store) SaveGraph(_ context.Context, campaignID string, state knowledge.Export) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SaveGraph"); err != nil {
		return err
	}
	prev := s.graphs[campaignID]
	merged := knowledge.Export{CampaignID: campaignID}

	nodeIdx := make(map[string]int)
	for _, n := range prev.Nodes {
		nodeIdx[n.ID] = len(merged.Nodes)
		merged.Nodes = append(merged.Nodes, n)
	}
	for _, n := range state.Nodes {
		if i, ok := nodeIdx[n.ID]; ok {
			merged.Nodes[i] = n
		} else {
			nodeIdx[n.ID] = len(merged.Nodes)
			merged.Nodes = append(merged.Nodes, n)
		}
	}

	type triple struct{ src, dst, typ string }
	edgeIdx := make(map[triple]int)
	for _, e := range prev.Edges {
		edgeIdx[triple{e.Source, e.Target, string(e.Type)}] = len(merged.Edges)
		merged.Edges = append(merged.Edges, e)
	}
	for _, e := range state.Edges {
		k := triple{e.Source, e.Target, string(e.Type)}
		if i, ok := edgeIdx[k]; ok {
			merged.Edges[i] = e
		} else {
			edgeIdx[k] = len(merged.Edges)
			merged.Edges = append(merged.Edges, e)
		}
	}

	s.graphs[campaignID] = merged
	s.SavedGraphs[campaignID]++
	return nil
}

// ─── Unit of work ────────────────────────────────────────────────────────────

// WithTx runs fn against the same store. The fake offers no rollback;
// transactional semantics are covered by the PostgreSQL implementation.
func (s *Store) WithTx(_ context.Context, fn func(store.Store) error) error {
	if err := s.fail("WithTx"); err != nil {
		return err
	}
	return fn(s)
}

func window[T any](all []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
