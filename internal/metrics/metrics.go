// Package metrics exposes the broker's Prometheus instrumentation: a
// process-wide registry gated behind an enabled flag, mirroring
// internal/telemetry's on/off pattern, plus counters and histograms for
// the decision pipeline, the persistent store, and the remote transport.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mu       sync.RWMutex
	enabled  bool
	registry *prometheus.Registry
	m        *set
)

// InitRegistry turns metrics collection on and builds the registry and its
// instruments. Calling it more than once is a no-op after the first call.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	if registry != nil {
		return registry
	}
	registry = prometheus.NewRegistry()
	enabled = true
	m = newSet(registry)
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the process-wide registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// set holds every instrument the broker emits. A nil *set (metrics
// disabled) makes every recording method below a no-op.
type set struct {
	agentDecisions   *prometheus.CounterVec
	agentDuration    *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	promptOutcomes   *prometheus.CounterVec
	remoteErrors     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	storeRows        prometheus.Gauge
}

func newSet(reg *prometheus.Registry) *set {
	return &set{
		agentDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustbroker_agent_decisions_total",
				Help: "Decisions produced by each agent in the chain, by agent and answer.",
			},
			[]string{"agent", "answer"},
		),
		agentDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trustbroker_agent_duration_seconds",
				Help:    "Time spent in Authenticate for each agent in the chain.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		cacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "trustbroker_cache_hits_total",
			Help: "Decisions served from the persistent store without a prompt.",
		}),
		cacheMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "trustbroker_cache_misses_total",
			Help: "Decisions that required a prompt because no cached row matched.",
		}),
		promptOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustbroker_prompt_outcomes_total",
				Help: "Prompt helper terminal outcomes (granted, denied, inconclusive).",
			},
			[]string{"outcome"},
		),
		remoteErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustbroker_remote_errors_total",
				Help: "Remote transport errors, by kind (transport_lost, spoofing_detected).",
			},
			[]string{"kind"},
		),
		activeSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "trustbroker_active_sessions",
			Help: "Number of connector sessions currently registered in the listener.",
		}),
		storeRows: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "trustbroker_store_rows",
			Help: "Number of rows in the persistent store, as last reported via SetStoreRows.",
		}),
	}
}

// RecordAgentDecision records one Authenticate call's outcome.
func RecordAgentDecision(agentName string, granted bool, elapsed time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	if m == nil {
		return
	}
	answer := "denied"
	if granted {
		answer = "granted"
	}
	m.agentDecisions.WithLabelValues(agentName, answer).Inc()
	m.agentDuration.WithLabelValues(agentName).Observe(elapsed.Seconds())
}

// RecordCacheHit records a CachedAgent hit.
func RecordCacheHit() {
	mu.RLock()
	defer mu.RUnlock()
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// RecordCacheMiss records a CachedAgent miss (prompt consulted).
func RecordCacheMiss() {
	mu.RLock()
	defer mu.RUnlock()
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// RecordPromptOutcome records the prompt agent's translated terminal
// state: "granted", "denied", or "inconclusive".
func RecordPromptOutcome(outcome string) {
	mu.RLock()
	defer mu.RUnlock()
	if m == nil {
		return
	}
	m.promptOutcomes.WithLabelValues(outcome).Inc()
}

// RecordRemoteError records a transport_lost or spoofing_detected event.
func RecordRemoteError(kind string) {
	mu.RLock()
	defer mu.RUnlock()
	if m == nil {
		return
	}
	m.remoteErrors.WithLabelValues(kind).Inc()
}

// SetActiveSessions reports the listener's current registry size.
func SetActiveSessions(n int) {
	mu.RLock()
	defer mu.RUnlock()
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// SetStoreRows reports a point-in-time row count for the persistent store.
func SetStoreRows(n int64) {
	mu.RLock()
	defer mu.RUnlock()
	if m == nil {
		return
	}
	m.storeRows.Set(float64(n))
}
