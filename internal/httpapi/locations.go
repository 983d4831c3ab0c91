package httpapi

import (
	"net/http"

	"github.com/lorekeeperhq/lorekeeper/internal/worldmap"
)

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.maps.List(r.Context(), r.PathValue("cid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name             string   `json:"name"`
		Description      string   `json:"description"`
		LocationType     string   `json:"location_type"`
		Theme            string   `json:"theme"`
		DangerLevel      int      `json:"danger_level"`
		ParentLocationID string   `json:"parent_location_id"`
		IsDiscovered     bool     `json:"is_discovered"`
		X                *float64 `json:"x"`
		Y                *float64 `json:"y"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := worldmap.CreateInput{
		Name:             req.Name,
		Description:      req.Description,
		LocationType:     req.LocationType,
		Theme:            req.Theme,
		DangerLevel:      req.DangerLevel,
		ParentLocationID: req.ParentLocationID,
		IsDiscovered:     req.IsDiscovered,
	}
	if req.X != nil && req.Y != nil {
		in.HasCoordinates = true
		in.X, in.Y = *req.X, *req.Y
	}
	loc, err := s.maps.Create(r.Context(), r.PathValue("cid"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loc)
}

func (s *Server) handleConnectLocations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromID     string `json:"from_id"`
		ToID       string `json:"to_id"`
		PathType   string `json:"path_type"`
		TravelTime int    `json:"travel_time_hours"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.maps.Connect(r.Context(), req.FromID, req.ToID, req.PathType, req.TravelTime); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.maps.Get(r.Context(), r.PathValue("lid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleLocationState(w http.ResponseWriter, r *http.Request) {
	state, err := s.world.LocationState(r.Context(), r.PathValue("lid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDiscoverLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.maps.Discover(r.Context(), r.PathValue("lid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TimeOfDay string `json:"time_of_day"`
		Weather   string `json:"weather"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	scene, err := s.maps.Scene(r.Context(), r.PathValue("lid"), worldmap.SceneInput{
		TimeOfDay: req.TimeOfDay,
		Weather:   req.Weather,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"scene": scene})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	data, err := s.maps.Map(r.Context(), r.PathValue("cid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleGenerateDungeon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name             string `json:"name"`
		Theme            string `json:"theme"`
		Rooms            int    `json:"rooms"`
		DangerLevel      int    `json:"danger_level"`
		ParentLocationID string `json:"parent_location_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rooms, err := s.maps.GenerateDungeon(r.Context(), r.PathValue("cid"), worldmap.DungeonInput{
		Name:             req.Name,
		Theme:            req.Theme,
		Rooms:            req.Rooms,
		DangerLevel:      req.DangerLevel,
		ParentLocationID: req.ParentLocationID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rooms)
}

func (s *Server) handleGenerateRegion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
		Count int    `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	locs, err := s.maps.GenerateRegion(r.Context(), r.PathValue("cid"), worldmap.RegionInput{
		Theme: req.Theme,
		Count: req.Count,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, locs)
}
