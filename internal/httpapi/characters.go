package httpapi

import (
	"net/http"

	"github.com/lorekeeperhq/lorekeeper/internal/npc"
	"github.com/lorekeeperhq/lorekeeper/internal/store"
	"github.com/lorekeeperhq/lorekeeper/internal/world"
)

// characterRequest is the JSON body for creating and updating characters.
type characterRequest struct {
	Name              string           `json:"name"`
	Race              string           `json:"race"`
	Class             string           `json:"class"`
	Level             int              `json:"level"`
	HPCurrent         *int             `json:"hp_current"`
	HPMax             int              `json:"hp_max"`
	ArmorClass        int              `json:"armor_class"`
	Abilities         *store.Abilities `json:"abilities"`
	Appearance        string           `json:"appearance"`
	Backstory         string           `json:"backstory"`
	PersonalityTraits []string         `json:"personality_traits"`
	Skills            []string         `json:"skills"`
	Proficiencies     []string         `json:"proficiencies"`
	Languages         []string         `json:"languages"`
	Equipment         map[string]any   `json:"equipment"`
	Inventory         []map[string]any `json:"inventory"`
}

func (c characterRequest) toInput() world.CharacterInput {
	return world.CharacterInput{
		Name:              c.Name,
		Race:              c.Race,
		Class:             c.Class,
		Level:             c.Level,
		HPCurrent:         c.HPCurrent,
		HPMax:             c.HPMax,
		ArmorClass:        c.ArmorClass,
		Abilities:         c.Abilities,
		Appearance:        c.Appearance,
		Backstory:         c.Backstory,
		PersonalityTraits: c.PersonalityTraits,
		Skills:            c.Skills,
		Proficiencies:     c.Proficiencies,
		Languages:         c.Languages,
		Equipment:         c.Equipment,
		Inventory:         c.Inventory,
	}
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req characterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := s.world.CreateCharacter(r.Context(), r.PathValue("cid"), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	filter := store.CharacterFilter{
		Type:      store.CharacterType(r.URL.Query().Get("character_type")),
		AliveOnly: r.URL.Query().Get("alive_only") == "true",
	}
	chars, err := s.world.ListCharacters(r.Context(), r.PathValue("cid"), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chars)
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	ch, err := s.world.GetCharacter(r.Context(), r.PathValue("chid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleUpdateCharacter(w http.ResponseWriter, r *http.Request) {
	var req characterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := s.world.UpdateCharacter(r.Context(), r.PathValue("chid"), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	if err := s.world.DeleteCharacter(r.Context(), r.PathValue("chid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── NPCs ────────────────────────────────────────────────────────────────────

func (s *Server) handleGenerateNPC(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role             string   `json:"role"`
		LocationID       string   `json:"location_id"`
		PersonalityHints []string `json:"personality_hints"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	generated, err := s.npcs.Generate(r.Context(), r.PathValue("cid"), npc.GenerateInput{
		Role:             req.Role,
		LocationID:       req.LocationID,
		PersonalityHints: req.PersonalityHints,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, generated)
}

func (s *Server) handleDialogue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
		Context string `json:"context"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.npcs.Dialogue(r.Context(), r.PathValue("chid"), npc.DialogueInput{
		Message: req.Message,
		Context: req.Context,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePlayerView(w http.ResponseWriter, r *http.Request) {
	view, err := s.npcs.InfoForPlayers(r.Context(), r.PathValue("chid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateDisposition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		Delta       int    `json:"delta"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.npcs.UpdateDisposition(r.Context(), r.PathValue("chid"), req.Description, req.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleNPCMemory(w http.ResponseWriter, r *http.Request) {
	mem, err := s.npcs.Memory(r.Context(), r.PathValue("chid"), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memory": mem})
}

// ─── Party ───────────────────────────────────────────────────────────────────

func (s *Server) handlePartyStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.world.PartyStatus(r.Context(), r.PathValue("cid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleMoveParty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocationID string `json:"location_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.world.MoveParty(r.Context(), r.PathValue("cid"), req.LocationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAwardXP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	awards, err := s.world.AwardXP(r.Context(), r.PathValue("cid"), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"awards": awards})
}
