package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Chat pipeline
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmsage_chat_requests_total",
			Help: "Chat requests by handling path",
		},
		[]string{"path"}, // quick_reply, direct_search, disambiguation, llm
	)

	ChatErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filmsage_chat_internal_errors_total",
			Help: "Chat requests that ended in the generic internal-error reply",
		},
	)

	// Language model
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmsage_llm_requests_total",
			Help: "Language model calls by outcome",
		},
		[]string{"provider", "outcome"}, // success, unreachable, model_unavailable, error
	)

	LLMLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmsage_llm_request_duration_seconds",
			Help:    "Latency of language model calls",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		},
		[]string{"provider"},
	)

	// Movie catalog
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmsage_catalog_requests_total",
			Help: "Upstream movie catalog requests",
		},
		[]string{"endpoint", "status"}, // status: ok, error
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmsage_cache_lookups_total",
			Help: "Catalog cache lookups",
		},
		[]string{"cache", "result"}, // hit, miss
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "filmsage_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmsage_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Background persistence
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmsage_jobs_processed_total",
			Help: "Background jobs by queue and outcome",
		},
		[]string{"queue", "outcome"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filmsage_websocket_connections",
			Help: "Open websocket connections",
		},
	)
)
