// Copyright (c) 2026 Bestiary. All rights reserved.

package resilience

import "time"

// RetryConfig bounds the retry loop inside a [Policy].
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first call.
	MaxRetries int

	// BaseDelay is the backoff before the first retry; it doubles per attempt.
	BaseDelay time.Duration
}

// DefaultRetryConfig returns the retry budget used for the translation
// provider: two extra attempts at 2s and 4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
	}
}
