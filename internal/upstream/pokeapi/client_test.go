// Copyright (c) 2026 Bestiary. All rights reserved.

package pokeapi_test

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

	"github.com/buivan/bestiary/internal/platform/apperr"
	"github.com/buivan/bestiary/internal/platform/resilience"
	"github.com/buivan/bestiary/internal/upstream/pokeapi"
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
	}, pokeapi.Classify, testLogger())
}

const speciesPayload = `{
	"id": 25,
	"name": "pikachu",
	"is_legendary": false,
	"habitat": {"name": "forest"},
	"flavor_text_entries": [
		{"flavor_text": "Es speichert Strom.", "language": {"name": "de"}},
		{"flavor_text": "A forest dweller.", "language": {"name": "en"}},
		{"flavor_text": "PIKACHU stores\nelectricity in its` + "\\f" + `cheeks.", "language": {"name": "en"}}
	]
}`

/*
TestFetchEntity_Success maps the species payload to the domain model,
preferring the English flavor text that mentions the entity and cleaning
its layout control characters.
*/
func TestFetchEntity_Success(t *testing.T) {
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, speciesPayload)
	}))
	defer server.Close()

	client := pokeapi.NewClient(server.URL, testPolicy(0, 3))

	e, err := client.FetchEntity(context.Background(), "  PIKACHU ")
	require.NoError(t, err)

	assert.Equal(t, "/pokemon-species/pikachu", path.Load(), "lookups are normalized before hitting the upstream")
	assert.Equal(t, int64(25), e.ID())
	assert.Equal(t, "pikachu", e.Name())
	assert.Equal(t, "forest", e.Habitat())
	assert.False(t, e.IsLegendary())
	assert.Equal(t, "PIKACHU stores electricity in its cheeks.", e.Description())
}

/*
TestFetchEntity_NullHabitat tolerates the nullable habitat field.
*/
func TestFetchEntity_NullHabitat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 150, "name": "mewtwo", "is_legendary": true, "habitat": null, "flavor_text_entries": []}`)
	}))
	defer server.Close()

	client := pokeapi.NewClient(server.URL, testPolicy(0, 3))

	e, err := client.FetchEntity(context.Background(), "mewtwo")
	require.NoError(t, err)
	assert.Empty(t, e.Habitat())
	assert.True(t, e.IsLegendary())
	assert.Empty(t, e.Description())
}

/*
TestFetchEntity_NotFound surfaces a 404 as NOT_FOUND, and repeated misses
never open the circuit.
*/
func TestFetchEntity_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := pokeapi.NewClient(server.URL, testPolicy(0, 1))

	for range 5 {
		_, err := client.FetchEntity(context.Background(), "missingno")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeNotFound), "a miss is an expected outcome, not a provider failure")
	}
}

/*
TestFetchEntity_RetriesServerErrors retries transient upstream failures
until the provider recovers.
*/
func TestFetchEntity_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, speciesPayload)
	}))
	defer server.Close()

	client := pokeapi.NewClient(server.URL, testPolicy(2, 10))

	e, err := client.FetchEntity(context.Background(), "pikachu")
	require.NoError(t, err)
	assert.Equal(t, "pikachu", e.Name())
	assert.Equal(t, int32(3), hits.Load())
}

/*
TestFetchEntity_BreakerFailsFast rejects calls without touching the network
once the circuit is open.
*/
func TestFetchEntity_BreakerFailsFast(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := pokeapi.NewClient(server.URL, testPolicy(0, 1))

	_, err := client.FetchEntity(context.Background(), "pikachu")
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.CodeUpstream))

	_, err = client.FetchEntity(context.Background(), "pikachu")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUpstream))
	assert.Equal(t, int32(1), hits.Load(), "an open circuit must not reach the upstream")
}

/*
TestFetchEntity_MalformedBody treats an undecodable payload as a permanent
upstream failure.
*/
func TestFetchEntity_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": `)
	}))
	defer server.Close()

	client := pokeapi.NewClient(server.URL, testPolicy(2, 10))

	_, err := client.FetchEntity(context.Background(), "pikachu")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUpstream))
}
