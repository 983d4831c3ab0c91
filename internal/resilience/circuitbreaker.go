// Package resilience keeps generation requests flowing when an LLM backend
// degrades.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open) that
// stops hammering a backend once it fails repeatedly. [FallbackGroup] chains
// several backends of the same provider type, each behind its own breaker,
// so a tripped primary is skipped in favour of the next healthy entry.
// [LLMFallback] is the [llm.Provider]-shaped composition the server actually
// wires in.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// refuses calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen] until the reset
	// timeout elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probe calls through. Probes
	// succeeding closes the breaker; a single probe failure re-opens it.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero values get defaults.
type CircuitBreakerConfig struct {
	// Name labels the breaker in log output, typically the backend name
	// ("openai", "ollama").
	Name string

	// MaxFailures is how many consecutive failures trip the breaker.
	// Default: 5.
	MaxFailures int

	// ResetTimeout is how long a tripped breaker waits before probing.
	// Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the probe budget in the half-open state. Default: 3.
	HalfOpenMax int

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// CircuitBreaker tracks consecutive failures of one backend and cuts it off
// once the failure budget is spent.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	now          func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	trippedAt     time.Time
	probesStarted int
	probesFailed  int
}

// NewCircuitBreaker creates a closed breaker from cfg.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		now:          now,
		state:        StateClosed,
	}
}

// Execute runs fn unless the breaker refuses. The error from fn is returned
// unchanged so callers can still inspect it.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probing, allowed := cb.admit()
	if !allowed {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure(probing)
	} else {
		cb.onSuccess(probing)
	}
	return err
}

// admit decides whether a call may proceed and whether it counts as a
// half-open probe.
func (cb *CircuitBreaker) admit() (probing, allowed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.trippedAt) < cb.resetTimeout {
			return false, false
		}
		cb.state = StateHalfOpen
		cb.probesStarted = 0
		cb.probesFailed = 0
		slog.Info("circuit breaker probing", "name", cb.name)
	}

	if cb.state == StateHalfOpen {
		if cb.probesStarted >= cb.halfOpenMax {
			return false, false
		}
		cb.probesStarted++
		return true, true
	}

	return false, true
}

// onFailure runs with cb.mu held.
func (cb *CircuitBreaker) onFailure(probing bool) {
	cb.trippedAt = cb.now()

	if probing {
		cb.probesFailed++
		cb.state = StateOpen
		cb.failures = cb.maxFailures
		slog.Warn("circuit breaker re-opened", "name", cb.name)
		return
	}

	cb.failures++
	if cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		slog.Warn("circuit breaker opened", "name", cb.name, "consecutive_failures", cb.failures)
	}
}

// onSuccess runs with cb.mu held.
func (cb *CircuitBreaker) onSuccess(probing bool) {
	if probing {
		if cb.probesStarted-cb.probesFailed >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
			cb.probesStarted = 0
			cb.probesFailed = 0
			slog.Info("circuit breaker closed", "name", cb.name)
		}
		return
	}
	cb.failures = 0
}

// State reports the breaker's mode. An open breaker whose reset timeout has
// elapsed reports half-open; the transition itself happens on the next
// Execute.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.trippedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probesStarted = 0
	cb.probesFailed = 0
	slog.Info("circuit breaker reset", "name", cb.name)
}
