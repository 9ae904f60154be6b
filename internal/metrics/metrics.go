// Package metrics exposes prometheus collectors for hunter runs. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hunter"

// Metrics groups the collectors registered for one registry.
type Metrics struct {
	APIRequests  *prometheus.CounterVec
	QuotaUnits   *prometheus.CounterVec
	Candidates   *prometheus.CounterVec
	FilterPasses *prometheus.CounterVec
	Tier1Score   prometheus.Histogram
	StoreWrites  *prometheus.CounterVec
	StoreRetries prometheus.Counter
	Runs         *prometheus.CounterVec
	RunDuration  prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Remote API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		QuotaUnits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_quota_units_total",
			Help:      "Quota units spent on successful remote API requests.",
		}, []string{"endpoint"}),
		Candidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Resolved candidates by final disposition.",
		}, []string{"disposition"}),
		FilterPasses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_dimension_passes_total",
			Help:      "Qualification filter passes per dimension.",
		}, []string{"dimension"}),
		Tier1Score: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tier1_score",
			Help:      "Distribution of audience-region scores.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		StoreWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Record store writes by retry outcome.",
		}, []string{"outcome"}),
		StoreRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_lock_retries_total",
			Help:      "Writes retried after lock contention.",
		}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Acquisition runs by result.",
		}, []string{"result"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of acquisition runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// ObserveAPIRequest counts one request and, on success, its quota cost.
func (m *Metrics) ObserveAPIRequest(endpoint, outcome string, cost int) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(endpoint, outcome).Inc()
	if outcome == "ok" && cost > 0 {
		m.QuotaUnits.WithLabelValues(endpoint).Add(float64(cost))
	}
}

func (m *Metrics) ObserveCandidate(disposition string) {
	if m == nil {
		return
	}
	m.Candidates.WithLabelValues(disposition).Inc()
}

func (m *Metrics) ObserveFilterPass(dimension string) {
	if m == nil {
		return
	}
	m.FilterPasses.WithLabelValues(dimension).Inc()
}

func (m *Metrics) ObserveTier1Score(score float64) {
	if m == nil {
		return
	}
	m.Tier1Score.Observe(score)
}

// ObserveStoreWrite records a write outcome and how many retries it took.
func (m *Metrics) ObserveStoreWrite(outcome string, retries int) {
	if m == nil {
		return
	}
	m.StoreWrites.WithLabelValues(outcome).Inc()
	if retries > 0 {
		m.StoreRetries.Add(float64(retries))
	}
}

func (m *Metrics) ObserveRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result).Inc()
	m.RunDuration.Observe(d.Seconds())
}
