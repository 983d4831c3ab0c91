// Package lorerr defines the error taxonomy shared by all Lorekeeper services.
//
// Services wrap these sentinels with context via fmt.Errorf("...: %w", ...);
// the HTTP layer maps them to status codes with errors.Is. Anything that does
// not match a sentinel is treated as an internal error.
package lorerr

import "errors"

var (
	// ErrInvalidInput indicates a schema or range violation in caller-supplied
	// data (bad dice notation, unknown enum value, out-of-range index).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStateViolation indicates an operation not allowed in the entity's
	// current state, such as acting on a completed session or a resolved
	// encounter.
	ErrStateViolation = errors.New("state violation")

	// ErrGeneratorUnavailable indicates the generator exhausted its retries
	// against transient failures (rate limits, upstream 5xx).
	ErrGeneratorUnavailable = errors.New("generator unavailable")

	// ErrGraphInvariant indicates a knowledge-graph invariant violation:
	// unknown node type, unknown edge type, or an edge endpoint missing from
	// the graph.
	ErrGraphInvariant = errors.New("graph invariant violation")

	// ErrConcurrencyConflict indicates per-campaign lock contention beyond
	// the configured deadline.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)
