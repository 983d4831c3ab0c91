// Package health serves dependency probes for the Lorekeeper server.
//
// Three routes are registered:
//
//   - /healthz — liveness; 200 whenever the process can serve HTTP.
//   - /readyz  — readiness; 200 only when every dependency check passes.
//   - /health  — alias for /readyz kept for clients of the original API.
//
// The readiness body is a JSON object with an overall "status" ("ok" or
// "fail") and one entry per dependency carrying its state and probe latency.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds a single dependency probe.
const checkTimeout = 5 * time.Second

// Checker probes one dependency, such as the relational store or the LLM
// provider. Check returns nil when the dependency is usable.
type Checker struct {
	// Name keys the check in the JSON response ("database", "llm_provider").
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// checkResult is the per-dependency entry in the readiness body.
type checkResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// report is the readiness response body.
type report struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// Handler evaluates dependency checkers on demand. Safe for concurrent use;
// the checker list is fixed at construction.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] over the given checkers. Checks run concurrently
// on each readiness request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always answers 200. A process that reached the handler is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok"})
}

// Readyz probes every dependency concurrently and answers 200 only when all
// pass. Each probe gets its own [checkTimeout] deadline so one stuck
// dependency cannot starve the report of the others.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	results := make([]checkResult, len(h.checkers))

	g, ctx := errgroup.WithContext(r.Context())
	for i, c := range h.checkers {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			start := time.Now()
			err := c.Check(probeCtx)
			res := checkResult{
				Status:    "ok",
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				res.Status = "fail"
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	rep := report{Status: "ok", Checks: make(map[string]checkResult, len(h.checkers))}
	status := http.StatusOK
	for i, c := range h.checkers {
		rep.Checks[c.Name] = results[i]
		if results[i].Status != "ok" {
			rep.Status = "fail"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, rep)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /health", h.Readyz)
}

// writeJSON encodes v with the given status code. On encoding failure it
// degrades to a minimal 500 body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
