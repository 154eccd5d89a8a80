// Copyright (c) 2026 Bestiary. All rights reserved.

package entity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the layered cache.
var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bestiary_entity_cache_hits_total",
		Help: "Entity cache hits by tier",
	}, []string{"tier"})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bestiary_entity_cache_misses_total",
		Help: "Entity lookups that missed both cache tiers",
	})

	failsafeServesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bestiary_entity_failsafe_serves_total",
		Help: "Reads answered from the fail-safe stale copy",
	})

	invalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bestiary_entity_cache_invalidations_total",
		Help: "Cache invalidations triggered by successful saves",
	})
)
