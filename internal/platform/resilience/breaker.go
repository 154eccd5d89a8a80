// Copyright (c) 2026 Bestiary. All rights reserved.

package resilience

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var breakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bestiary_breaker_transitions_total",
	Help: "Circuit breaker state transitions by target state",
}, []string{"state"})

// State is the circuit breaker state.
type State int

const (
	// StateClosed lets all calls through while sampling outcomes.
	StateClosed State = iota

	// StateOpen fails every call fast until the break duration elapses.
	StateOpen

	// StateHalfOpen permits a single trial call to probe recovery.
	StateHalfOpen
)

// String implements fmt.Stringer for logging and metric labels.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes the rolling failure window and break durations.
type BreakerConfig struct {
	// Window is the rolling sampling window for failure accounting.
	Window time.Duration

	// MinSamples is the minimum number of recorded calls inside the window
	// before the failure ratio is evaluated.
	MinSamples int

	// FailureRatio opens the circuit when the windowed failure share
	// reaches this value.
	FailureRatio float64

	// OpenFor is the break duration after a generic failure trip.
	OpenFor time.Duration

	// RateLimitOpenFor is the break duration after a rate-limit trip,
	// aligned to the provider's hourly quota reset.
	RateLimitOpenFor time.Duration
}

// DefaultBreakerConfig returns the breaker settings used for the translation
// provider.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Window:           10 * time.Second,
		MinSamples:       3,
		FailureRatio:     0.5,
		OpenFor:          30 * time.Second,
		RateLimitOpenFor: 15 * time.Minute,
	}
}

// sample is a single recorded call outcome.
type sample struct {
	at     time.Time
	failed bool
}

// Breaker is a rolling-window circuit breaker.
//
// Transitions: Closed -> Open on threshold breach, Open -> HalfOpen after the
// break duration, HalfOpen -> Closed on trial success or back to Open on
// trial failure. While open, [Breaker.Allow] fails fast without reaching the
// network.
//
// # Concurrency
//
// All state is guarded by a single mutex so outcome reporting from concurrent
// requests is atomic.
type Breaker struct {
	cfg    BreakerConfig
	logger *slog.Logger

	// now is replaceable in tests.
	now func() time.Time

	mu            sync.Mutex
	state         State
	samples       []sample
	openedAt      time.Time
	openFor       time.Duration
	trialInFlight bool
}

// NewBreaker creates a closed breaker with the given configuration.
func NewBreaker(cfg BreakerConfig, logger *slog.Logger) *Breaker {
	return &Breaker{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Allow reports whether a call may proceed. It returns [ErrOpen] while the
// circuit is open, and transitions to half-open once the break duration has
// elapsed, admitting exactly one trial call.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if b.now().Sub(b.openedAt) < b.openFor {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.trialInFlight = true
		return nil

	case StateHalfOpen:
		if b.trialInFlight {
			return ErrOpen
		}
		b.trialInFlight = true
		return nil
	}

	return nil
}

// Record reports a call outcome. The class is only consulted for failures:
// a rate-limit failure trips the breaker into its long break duration.
func (b *Breaker) Record(class Class, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.trialInFlight = false
		if failed {
			b.trip(class)
			return
		}
		b.samples = b.samples[:0]
		b.transition(StateClosed)
		return
	}

	// A late result reported after the circuit already opened is dropped:
	// the window restarts from the half-open trial.
	if b.state == StateOpen {
		return
	}

	now := b.now()
	b.samples = append(b.samples, sample{at: now, failed: failed})
	b.prune(now)

	if failed && len(b.samples) >= b.cfg.MinSamples && b.failureRatio() >= b.cfg.FailureRatio {
		b.trip(class)
	}
}

// releaseTrial abandons an inconclusive half-open trial whose caller went
// away before the provider answered. The trial slot is freed so the next
// call can probe again; nothing is recorded, since a cancelled trial says
// nothing about provider health.
func (b *Breaker) releaseTrial() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.trialInFlight = false
	}
}

// State returns the current breaker state (health reporting).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// trip opens the circuit, picking the break duration from the tripping class.
// Callers must hold b.mu.
func (b *Breaker) trip(class Class) {
	b.openFor = b.cfg.OpenFor
	if class == ClassRateLimit {
		b.openFor = b.cfg.RateLimitOpenFor
	}
	b.openedAt = b.now()
	b.samples = b.samples[:0]
	b.transition(StateOpen)
}

// prune drops samples older than the rolling window. Callers must hold b.mu.
func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.cfg.Window)
	kept := b.samples[:0]
	for _, s := range b.samples {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	b.samples = kept
}

// failureRatio computes the windowed failure share. Callers must hold b.mu.
func (b *Breaker) failureRatio() float64 {
	if len(b.samples) == 0 {
		return 0
	}
	failures := 0
	for _, s := range b.samples {
		if s.failed {
			failures++
		}
	}
	return float64(failures) / float64(len(b.samples))
}

// transition switches state and records the change. Callers must hold b.mu.
func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}
	b.logger.Info("breaker_state_changed",
		slog.String("from", b.state.String()),
		slog.String("to", next.String()),
		slog.Duration("open_for", b.openFor),
	)
	breakerTransitionsTotal.WithLabelValues(next.String()).Inc()
	b.state = next
}
