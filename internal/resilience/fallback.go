package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every backend in a [FallbackGroup] either
// failed or was refused by its circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig seeds the circuit breaker created for each backend in a
// [FallbackGroup].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// backend pairs one provider instance with its dedicated breaker.
type backend[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary and zero or more fallback instances of the
// same provider type. A request walks the chain in registration order,
// skipping backends whose breaker is open, until one succeeds.
//
// FallbackGroup is safe for concurrent use once assembled; AddFallback is
// not safe to call concurrently with Execute.
type FallbackGroup[T any] struct {
	backends []backend[T]
	cfg      FallbackConfig
}

// NewFallbackGroup creates a group with primary as the preferred backend.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	g := &FallbackGroup[T]{cfg: cfg}
	g.add(primaryName, primary)
	return g
}

// AddFallback appends a backend tried after all earlier entries.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.add(name, fallback)
}

func (fg *FallbackGroup[T]) add(name string, value T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.backends = append(fg.backends, backend[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute runs fn against each backend in order until one succeeds. Every
// backend failing yields [ErrAllFailed] wrapped around the last error.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	var lastErr error
	for i := range fg.backends {
		b := &fg.backends[i]
		err := b.breaker.Execute(func() error {
			return fn(b.value)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		logBackendFailure(b.name, err)
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that return a value.
// A package-level function because methods cannot add type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.backends {
		b := &fg.backends[i]
		var result R
		err := b.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(b.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		logBackendFailure(b.name, err)
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

func logBackendFailure(name string, err error) {
	if errors.Is(err, ErrCircuitOpen) {
		slog.Debug("skipping backend, circuit open", "provider", name)
		return
	}
	slog.Warn("backend failed, trying next", "provider", name, "error", err)
}
