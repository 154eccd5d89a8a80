// Copyright (c) 2026 Bestiary. All rights reserved.

/*
Package resilience wraps outbound upstream calls with three composable
policies: a per-attempt timeout, a retry loop with exponential backoff, and a
circuit breaker. Each upstream provider gets its own [Policy] instance.

Composition order is fixed: timeout innermost, then retry, then the breaker
outermost. The breaker therefore observes retry-exhausted outcomes, not
individual attempt timeouts.

Failures are classified by the caller through a [Classifier]: transient
failures (5xx, timeouts, connection errors) are retried; rate-limit failures
are never retried, since retrying would worsen the quota exhaustion, but they
do count against the breaker and trigger its long open period.
*/
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the policy layer.
var (
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bestiary_upstream_retries_total",
		Help: "Total retry attempts against upstream providers",
	})

	rejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bestiary_breaker_rejections_total",
		Help: "Total calls rejected while the circuit breaker was open",
	})
)

// ErrOpen is returned without touching the network while the circuit is open.
var ErrOpen = errors.New("resilience: circuit breaker is open")

// Class is the failure classification consulted by the retry and breaker policies.
type Class int

const (
	// ClassPermanent failures are returned immediately (4xx, malformed bodies).
	ClassPermanent Class = iota

	// ClassTransient failures are retried (5xx, request timeouts, transport errors).
	ClassTransient

	// ClassRateLimit failures are never retried and open the breaker for the
	// long rate-limit break duration.
	ClassRateLimit

	// ClassExpected failures are valid business outcomes (a lookup that finds
	// nothing). They return immediately and count as provider successes.
	ClassExpected
)

// Classifier maps an operation error to a failure [Class].
// It is only invoked with non-nil errors.
type Classifier func(error) Class

// Config aggregates the three policy configurations.
type Config struct {
	// Timeout caps a single call attempt.
	Timeout time.Duration

	// Retry bounds the retry loop around attempts.
	Retry RetryConfig

	// Breaker configures the outermost circuit breaker.
	Breaker BreakerConfig
}

// Policy applies timeout, retry, and circuit-breaking around an operation.
//
// # Concurrency
//
// A single Policy instance guards all calls to one upstream provider and is
// safe for concurrent use; the breaker is the only shared state and is
// updated atomically with respect to concurrent result reporting.
type Policy struct {
	timeout  time.Duration
	retry    RetryConfig
	breaker  *Breaker
	classify Classifier
	logger   *slog.Logger
}

// NewPolicy builds a policy from cfg. The classifier must not be nil.
func NewPolicy(cfg Config, classify Classifier, logger *slog.Logger) *Policy {
	return &Policy{
		timeout:  cfg.Timeout,
		retry:    cfg.Retry,
		breaker:  NewBreaker(cfg.Breaker, logger),
		classify: classify,
		logger:   logger,
	}
}

// Breaker exposes the underlying circuit breaker (health reporting).
func (p *Policy) Breaker() *Breaker {
	return p.breaker
}

// Do executes op through the full policy chain and reports the outcome to the
// circuit breaker. Caller cancellation is propagated untouched and is not
// counted as a provider failure.
func (p *Policy) Do(ctx context.Context, op func(context.Context) error) error {
	if err := p.breaker.Allow(); err != nil {
		rejectionsTotal.Inc()
		return err
	}

	err := p.doWithRetry(ctx, op)

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// The caller went away, so the outcome says nothing about the
		// provider. Free a half-open trial slot instead of leaving it
		// occupied forever.
		p.breaker.releaseTrial()
		return err
	}

	if err == nil {
		p.breaker.Record(ClassPermanent, false)
		return nil
	}

	class := p.classify(err)
	p.breaker.Record(class, class != ClassExpected)
	return err
}

// doWithRetry runs op with per-attempt timeouts and exponential backoff,
// retrying only transient failures. It returns the last observed outcome once
// the retry budget is exhausted.
func (p *Policy) doWithRetry(ctx context.Context, op func(context.Context) error) error {
	delay := p.retry.BaseDelay

	var err error
	for attempt := 0; ; attempt++ {
		err = p.attempt(ctx, op)
		if err == nil {
			if attempt > 0 {
				p.logger.Info("upstream_call_recovered", slog.Int("attempt", attempt+1))
			}
			return nil
		}

		if p.classify(err) != ClassTransient || attempt >= p.retry.MaxRetries {
			return err
		}

		retriesTotal.Inc()
		p.logger.Debug("upstream_call_retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		// Exponential backoff: base delay doubles per attempt.
		delay *= 2
	}
}

// attempt runs op once under the per-attempt timeout.
func (p *Policy) attempt(ctx context.Context, op func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return op(attemptCtx)
}
