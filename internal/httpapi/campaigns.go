package httpapi

import (
	"net/http"

	"github.com/lorekeeperhq/lorekeeper/internal/store"
	"github.com/lorekeeperhq/lorekeeper/internal/world"
)

// campaignRequest is the JSON body for creating and updating campaigns.
type campaignRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Genre       string         `json:"genre"`
	Tone        string         `json:"tone"`
	WorldRules  map[string]any `json:"world_rules"`
}

func (c campaignRequest) toInput() world.CampaignInput {
	return world.CampaignInput{
		Name:        c.Name,
		Description: c.Description,
		Genre:       store.Genre(c.Genre),
		Tone:        store.Tone(c.Tone),
		WorldRules:  c.WorldRules,
	}
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.world.CreateCampaign(r.Context(), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 50)
	campaigns, err := s.world.ListCampaignDetails(r.Context(), skip, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.world.GetCampaign(r.Context(), r.PathValue("cid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.world.UpdateCampaign(r.Context(), r.PathValue("cid"), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := s.world.DeleteCampaign(r.Context(), r.PathValue("cid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCampaignTimeline(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	entries, err := s.world.Timeline(r.Context(), r.PathValue("cid"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeline": entries})
}
