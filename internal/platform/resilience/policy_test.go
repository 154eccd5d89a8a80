// Copyright (c) 2026 Bestiary. All rights reserved.

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("connection reset")
	errPermanent = errors.New("bad request")
	errThrottled = errors.New("quota exhausted")
)

func testClassifier(err error) Class {
	switch {
	case errors.Is(err, errPermanent):
		return ClassPermanent
	case errors.Is(err, errThrottled):
		return ClassRateLimit
	}
	return ClassTransient
}

func testPolicy() *Policy {
	return NewPolicy(Config{
		Timeout: time.Second,
		Retry:   RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond},
		Breaker: testBreakerConfig(),
	}, testClassifier, discardLogger())
}

/*
TestPolicy_RetriesTransientFailures retries transient failures with backoff
until the operation recovers.
*/
func TestPolicy_RetriesTransientFailures(t *testing.T) {
	p := testPolicy()

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, StateClosed, p.Breaker().State())
}

/*
TestPolicy_ExhaustsRetryBudget surfaces the last failure once the retry
budget is spent.
*/
func TestPolicy_ExhaustsRetryBudget(t *testing.T) {
	p := testPolicy()

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errTransient
	})

	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
}

/*
TestPolicy_NoRetryOnPermanent returns permanent failures immediately.
*/
func TestPolicy_NoRetryOnPermanent(t *testing.T) {
	p := testPolicy()

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errPermanent
	})

	require.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
}

/*
TestPolicy_NoRetryOnRateLimit never burns quota retrying a throttled call,
and the trip holds the circuit open for the long break.
*/
func TestPolicy_NoRetryOnRateLimit(t *testing.T) {
	cfg := testBreakerConfig()
	cfg.MinSamples = 1
	p := NewPolicy(Config{
		Timeout: time.Second,
		Retry:   RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond},
		Breaker: cfg,
	}, testClassifier, discardLogger())

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errThrottled
	})

	require.ErrorIs(t, err, errThrottled)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, StateOpen, p.Breaker().State())

	// Subsequent calls fail fast without reaching the operation.
	err = p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	require.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, 1, attempts)
}

/*
TestPolicy_CallerCancellationNotRecorded propagates the caller's own
cancellation without counting it as a provider failure.
*/
func TestPolicy_CallerCancellationNotRecorded(t *testing.T) {
	cfg := testBreakerConfig()
	cfg.MinSamples = 1
	p := NewPolicy(Config{
		Timeout: time.Second,
		Retry:   RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond},
		Breaker: cfg,
	}, testClassifier, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	err := p.Do(ctx, func(opCtx context.Context) error {
		cancel()
		<-opCtx.Done()
		return opCtx.Err()
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, p.Breaker().State())
}

/*
TestPolicy_CancelledTrialFreesHalfOpenSlot keeps a half-open circuit
probe-able after a trial's caller cancels mid-call: the slot is released,
the next call runs as a fresh trial, and its success closes the circuit.
*/
func TestPolicy_CancelledTrialFreesHalfOpenSlot(t *testing.T) {
	cfg := testBreakerConfig()
	cfg.MinSamples = 1
	p := NewPolicy(Config{
		Timeout: time.Second,
		Retry:   RetryConfig{MaxRetries: 0, BaseDelay: time.Millisecond},
		Breaker: cfg,
	}, testClassifier, discardLogger())

	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.Breaker().now = func() time.Time { return current }

	// Trip the circuit.
	err := p.Do(context.Background(), func(ctx context.Context) error {
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, StateOpen, p.Breaker().State())

	// Past the break the next call is admitted as the half-open trial, but
	// its caller goes away before the provider answers.
	current = current.Add(cfg.OpenFor + time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err = p.Do(ctx, func(opCtx context.Context) error {
		attempts++
		cancel()
		<-opCtx.Done()
		return opCtx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)

	// The trial slot is free again: a healthy call runs and closes the circuit.
	err = p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, StateClosed, p.Breaker().State())
}

/*
TestPolicy_PerAttemptTimeout bounds each attempt individually; a timed-out
attempt classifies as transient and is retried.
*/
func TestPolicy_PerAttemptTimeout(t *testing.T) {
	p := NewPolicy(Config{
		Timeout: 10 * time.Millisecond,
		Retry:   RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond},
		Breaker: testBreakerConfig(),
	}, testClassifier, discardLogger())

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		<-ctx.Done()
		return ctx.Err()
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, attempts)
}

/*
TestPolicy_ExpectedFailuresCountAsSuccess keeps valid business outcomes
from tripping the circuit.
*/
func TestPolicy_ExpectedFailuresCountAsSuccess(t *testing.T) {
	errMiss := errors.New("no such record")
	classify := func(err error) Class {
		if errors.Is(err, errMiss) {
			return ClassExpected
		}
		return testClassifier(err)
	}

	cfg := testBreakerConfig()
	cfg.MinSamples = 1
	p := NewPolicy(Config{
		Timeout: time.Second,
		Retry:   RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond},
		Breaker: cfg,
	}, classify, discardLogger())

	for range 5 {
		err := p.Do(context.Background(), func(ctx context.Context) error {
			return errMiss
		})
		require.ErrorIs(t, err, errMiss)
	}

	assert.Equal(t, StateClosed, p.Breaker().State())
}
