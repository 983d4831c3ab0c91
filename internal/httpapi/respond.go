package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
)

// errorBody is the uniform JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps a service error to its HTTP status via the lorerr
// sentinels and writes the JSON error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lorerr.ErrInvalidInput),
		errors.Is(err, lorerr.ErrStateViolation),
		errors.Is(err, lorerr.ErrGraphInvariant):
		status = http.StatusBadRequest
	case errors.Is(err, lorerr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lorerr.ErrConcurrencyConflict):
		status = http.StatusConflict
	case errors.Is(err, lorerr.ErrGeneratorUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorBody{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// decodeJSON decodes the request body into v. Unknown fields are rejected.
// An empty body leaves v at its zero value.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("httpapi: decode body: %v: %w", err, lorerr.ErrInvalidInput)
	}
	return nil
}

// queryInt reads an integer query parameter, returning def when absent or
// unparsable.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return def
	}
	return n
}
