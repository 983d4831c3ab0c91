package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
	"github.com/lorekeeperhq/lorekeeper/internal/narrative"
)

// actionRequest is the JSON body for story beats, streamed or not.
type actionRequest struct {
	Action  string `json:"action"`
	Context string `json:"context"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := s.narrative.Action(r.Context(), r.PathValue("sid"), narrative.ActionInput{
		Action:  req.Action,
		Context: req.Context,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// handleActionStream serves a story beat as a Server-Sent Events stream of
// text chunks. The completed beat is persisted after the stream drains.
func (s *Server) handleActionStream(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, fmt.Errorf("httpapi: streaming unsupported by connection: %w", lorerr.ErrInvalidInput))
		return
	}

	chunks, err := s.narrative.Stream(r.Context(), r.PathValue("sid"), narrative.ActionInput{
		Action:  req.Action,
		Context: req.Context,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for chunk := range chunks {
		// SSE frames are newline-delimited; multi-line chunks become
		// consecutive data lines of one event.
		for _, line := range strings.Split(chunk, "\n") {
			fmt.Fprintf(w, "data: %s\n", line)
		}
		fmt.Fprint(w, "\n")
		flusher.Flush()
	}
	fmt.Fprint(w, "event: done\ndata: \n\n")
	flusher.Flush()
}

func (s *Server) handleOpening(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Style        string `json:"style"`
		IncludeRecap bool   `json:"include_recap"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := s.narrative.Opening(r.Context(), r.PathValue("sid"), narrative.OpeningInput{
		Style:        req.Style,
		IncludeRecap: req.IncludeRecap,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID     string `json:"event_id"`
		ChoiceIndex int    `json:"choice_index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := s.narrative.Choose(r.Context(), r.PathValue("sid"), req.EventID, req.ChoiceIndex)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}
