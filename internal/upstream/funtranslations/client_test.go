// Copyright (c) 2026 Bestiary. All rights reserved.

package funtranslations_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buivan/bestiary/internal/entity"
	"github.com/buivan/bestiary/internal/platform/apperr"
	"github.com/buivan/bestiary/internal/platform/resilience"
	"github.com/buivan/bestiary/internal/upstream/funtranslations"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPolicy(maxRetries, minSamples int) *resilience.Policy {
	return resilience.NewPolicy(resilience.Config{
		Timeout: time.Second,
		Retry:   resilience.RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Millisecond},
		Breaker: resilience.BreakerConfig{
			Window:           10 * time.Second,
			MinSamples:       minSamples,
			FailureRatio:     0.5,
			OpenFor:          30 * time.Second,
			RateLimitOpenFor: time.Minute,
		},
	}, funtranslations.Classify, testLogger())
}

/*
TestTranslate_Success posts the text as a form field to the style endpoint
and returns the rewritten contents.
*/
func TestTranslate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/translate/yoda.json", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Created by genetic manipulation.", r.PostFormValue("text"))

		fmt.Fprint(w, `{"contents": {"translated": "Created by genetic manipulation, it was."}}`)
	}))
	defer server.Close()

	client := funtranslations.NewClient(server.URL, testPolicy(0, 3))

	text, err := client.Translate(context.Background(), "Created by genetic manipulation.", entity.TranslationYoda)
	require.NoError(t, err)
	assert.Equal(t, "Created by genetic manipulation, it was.", text)
}

/*
TestTranslate_UnsupportedStyle fails before any network call is made.
*/
func TestTranslate_UnsupportedStyle(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := funtranslations.NewClient(server.URL, testPolicy(0, 3))

	_, err := client.Translate(context.Background(), "text", entity.TranslationNone)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUnsupportedStyle))
	assert.Zero(t, hits.Load())
}

/*
TestTranslate_RateLimited maps a 429 to the rate-limit taxonomy, trips the
circuit into its long break, and fails fast afterwards.
*/
func TestTranslate_RateLimited(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := funtranslations.NewClient(server.URL, testPolicy(2, 1))

	_, err := client.Translate(context.Background(), "text", entity.TranslationShakespeare)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeRateLimited))
	assert.Equal(t, int32(1), hits.Load(), "a throttled call is never retried")

	_, err = client.Translate(context.Background(), "text", entity.TranslationShakespeare)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUpstream))
	assert.Equal(t, int32(1), hits.Load(), "an open circuit must not reach the upstream")
}

/*
TestTranslate_UpstreamErrorEnvelope carries the provider's own error
message for diagnostics.
*/
func TestTranslate_UpstreamErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"code": 400, "message": "Bad Request: text is missing."}}`)
	}))
	defer server.Close()

	client := funtranslations.NewClient(server.URL, testPolicy(0, 3))

	_, err := client.Translate(context.Background(), "text", entity.TranslationShakespeare)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUpstream))
	assert.Contains(t, err.Error(), "Bad Request: text is missing.")
}

/*
TestTranslate_EmptyResult rejects a success envelope carrying no text.
*/
func TestTranslate_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"contents": {"translated": "   "}}`)
	}))
	defer server.Close()

	client := funtranslations.NewClient(server.URL, testPolicy(0, 3))

	_, err := client.Translate(context.Background(), "text", entity.TranslationShakespeare)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUpstream))
}

/*
TestTranslate_RetriesServerErrors retries transient provider failures.
*/
func TestTranslate_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"contents": {"translated": "Thee text."}}`)
	}))
	defer server.Close()

	client := funtranslations.NewClient(server.URL, testPolicy(2, 10))

	text, err := client.Translate(context.Background(), "text", entity.TranslationShakespeare)
	require.NoError(t, err)
	assert.Equal(t, "Thee text.", text)
	assert.Equal(t, int32(2), hits.Load())
}
