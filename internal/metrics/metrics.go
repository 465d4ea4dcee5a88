// Package metrics exposes Prometheus collectors for the scan cycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

const namespace = "crossodds"

// Metrics holds every collector. Collectors are registered on the registry
// passed to New so tests can use a fresh one.
type Metrics struct {
	reg *prometheus.Registry

	CyclesTotal        *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	QuotesFetched      *prometheus.CounterVec
	QuotesRejected     *prometheus.CounterVec
	Matches            *prometheus.CounterVec
	Opportunities      *prometheus.CounterVec
	Suppressed         prometheus.Counter
	OpportunityMargin  *prometheus.HistogramVec
	AllocationErrors   prometheus.Counter
	FetchDuration      *prometheus.HistogramVec
	LastCycleTimestamp prometheus.Gauge
}

// New registers all collectors on reg. A nil reg creates a new registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Scan cycles by final status.",
		}, []string{"status"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one scan cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		QuotesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_fetched_total",
			Help:      "Raw quotes fetched per platform.",
		}, []string{"platform"}),
		QuotesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_rejected_total",
			Help:      "Raw quotes dropped as malformed per platform.",
		}, []string{"platform"}),
		Matches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Cross-platform event matches by basis.",
		}, []string{"basis"}),
		Opportunities: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Opportunities handed off, by kind.",
		}, []string{"kind"}),
		Suppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_suppressed_total",
			Help:      "Opportunities dropped as duplicates inside the retention window.",
		}),
		OpportunityMargin: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "opportunity_margin_pct",
			Help:      "Margin of handed-off opportunities in percent.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 20, 50},
		}, []string{"kind"}),
		AllocationErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_errors_total",
			Help:      "Arbitrage opportunities that could not be sized.",
		}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a platform fetch including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform"}),
		LastCycleTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last cycle finished.",
		}),
	}
}

// ObserveCycle records the counters of a finished cycle.
func (m *Metrics) ObserveCycle(r domain.CycleReport) {
	m.CyclesTotal.WithLabelValues(string(r.Status)).Inc()
	if r.Status == domain.CycleSkipped {
		return
	}
	m.CycleDuration.Observe(r.Duration.Seconds())
	m.QuotesFetched.WithLabelValues(string(domain.ExchangeA)).Add(float64(r.QuotesA))
	m.QuotesFetched.WithLabelValues(string(domain.ExchangeB)).Add(float64(r.QuotesB))
	m.Suppressed.Add(float64(r.Suppressed))
	m.AllocationErrors.Add(float64(r.AllocationErrs))
	m.LastCycleTimestamp.Set(float64(r.StartedAt.Add(r.Duration).Unix()))
}

// ObserveOpportunity records one handed-off opportunity.
func (m *Metrics) ObserveOpportunity(o domain.Opportunity) {
	m.Opportunities.WithLabelValues(string(o.Kind)).Inc()
	m.OpportunityMargin.WithLabelValues(string(o.Kind)).Observe(o.MarginPct)
}

// ObserveMatches counts matched pairs by basis.
func (m *Metrics) ObserveMatches(pairs []domain.MatchedPair) {
	for _, p := range pairs {
		m.Matches.WithLabelValues(string(p.Basis)).Inc()
	}
}

// ObserveRejected counts malformed quotes for a platform.
func (m *Metrics) ObserveRejected(p domain.Platform, n int) {
	m.QuotesRejected.WithLabelValues(string(p)).Add(float64(n))
}

// ObserveFetch records how long fetching one platform took.
func (m *Metrics) ObserveFetch(p domain.Platform, d time.Duration) {
	m.FetchDuration.WithLabelValues(string(p)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
