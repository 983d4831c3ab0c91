package httpapi

import "net/http"

// d20Request is the shared body for every 1d20-based dice endpoint.
type d20Request struct {
	DC           int  `json:"dc"`
	ArmorClass   int  `json:"armor_class"`
	Modifier     int  `json:"modifier"`
	Advantage    bool `json:"advantage"`
	Disadvantage bool `json:"disadvantage"`
}

func (s *Server) handleDiceRoll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notation     string `json:"notation"`
		Advantage    bool   `json:"advantage"`
		Disadvantage bool   `json:"disadvantage"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		res any
		err error
	)
	switch {
	case req.Advantage && !req.Disadvantage:
		res, err = s.roller.RollWithAdvantage(req.Notation)
	case req.Disadvantage && !req.Advantage:
		res, err = s.roller.RollWithDisadvantage(req.Notation)
	default:
		res, err = s.roller.Roll(req.Notation)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDiceDamage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notation string `json:"notation"`
		Critical bool   `json:"critical"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.roller.RollDamage(req.Notation, req.Critical)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSkillCheck(w http.ResponseWriter, r *http.Request) {
	var req d20Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.roller.SkillCheck(req.DC, req.Modifier, req.Advantage, req.Disadvantage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSavingThrow(w http.ResponseWriter, r *http.Request) {
	var req d20Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.roller.SavingThrow(req.DC, req.Modifier, req.Advantage, req.Disadvantage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	var req d20Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.roller.AttackRoll(req.ArmorClass, req.Modifier, req.Advantage, req.Disadvantage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInitiative(w http.ResponseWriter, r *http.Request) {
	var req d20Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.roller.Initiative(req.Modifier, req.Advantage, req.Disadvantage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDiceStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stats": s.roller.RollStats()})
}
