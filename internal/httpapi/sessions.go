package httpapi

import (
	"net/http"

	"github.com/lorekeeperhq/lorekeeper/internal/store"
	"github.com/lorekeeperhq/lorekeeper/internal/world"
)

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.world.StartSession(r.Context(), r.PathValue("cid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.world.ListSessions(r.Context(), r.PathValue("cid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.world.GetSession(r.Context(), r.PathValue("sid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes *string `json:"notes"`
		Recap *string `json:"recap"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.world.UpdateSession(r.Context(), r.PathValue("sid"), world.SessionUpdate{
		Notes: req.Notes,
		Recap: req.Recap,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleEndSession completes a session. With generate_recap=true a recap is
// produced and stored before the session closes.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes         string `json:"notes"`
		GenerateRecap bool   `json:"generate_recap"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sid := r.PathValue("sid")

	if req.GenerateRecap {
		if _, err := s.narrative.Recap(r.Context(), sid); err != nil {
			// A session without events has nothing to recap; closing it is
			// still fine. Anything else fails the request.
			s.log.WarnContext(r.Context(), "recap on session end failed", "session_id", sid, "error", err)
		}
	}

	sess, err := s.world.EndSession(r.Context(), sid, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	page := store.EventPage{
		Offset: queryInt(r, "skip", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	events, err := s.narrative.Events(r.Context(), r.PathValue("sid"), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleRecap(w http.ResponseWriter, r *http.Request) {
	recap, err := s.narrative.Recap(r.Context(), r.PathValue("sid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recap)
}
