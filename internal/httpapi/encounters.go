package httpapi

import (
	"net/http"

	"github.com/lorekeeperhq/lorekeeper/internal/dice"
	"github.com/lorekeeperhq/lorekeeper/internal/encounter"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
)

func (s *Server) handleCreateEncounter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EncounterType string `json:"encounter_type"`
		Difficulty    string `json:"difficulty"`
		Theme         string `json:"theme"`
		LocationID    string `json:"location_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	enc, err := s.encounters.Create(r.Context(), r.PathValue("sid"), encounter.CreateInput{
		Type:       store.EncounterType(req.EncounterType),
		Difficulty: store.Difficulty(req.Difficulty),
		Theme:      req.Theme,
		LocationID: req.LocationID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, enc)
}

func (s *Server) handleListEncounters(w http.ResponseWriter, r *http.Request) {
	encs, err := s.encounters.List(r.Context(), r.PathValue("sid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encs)
}

func (s *Server) handleGetEncounter(w http.ResponseWriter, r *http.Request) {
	enc, err := s.encounters.Get(r.Context(), r.PathValue("eid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enc)
}

func (s *Server) handleEncounterAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID    string           `json:"actor_id"`
		ActionType string           `json:"action_type"`
		TargetID   string           `json:"target_id"`
		Modifier   int              `json:"modifier"`
		DiceResult *dice.RollResult `json:"dice_result"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.encounters.Action(r.Context(), r.PathValue("eid"), encounter.ActionInput{
		ActorID:    req.ActorID,
		ActionType: req.ActionType,
		TargetID:   req.TargetID,
		Modifier:   req.Modifier,
		DiceResult: req.DiceResult,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEncounterBalance(w http.ResponseWriter, r *http.Request) {
	report, err := s.encounters.Balance(r.Context(), r.PathValue("eid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleResolveEncounter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Outcome string `json:"outcome"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Outcome == "" {
		req.Outcome = string(store.EncounterResolved)
	}
	enc, err := s.encounters.Resolve(r.Context(), r.PathValue("eid"), store.EncounterStatus(req.Outcome))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enc)
}

func (s *Server) handleEncounterLoot(w http.ResponseWriter, r *http.Request) {
	loot, err := s.encounters.Loot(r.Context(), r.PathValue("eid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loot)
}
