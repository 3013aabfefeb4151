package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus counters and the histogram for one
// syncer invocation. The process is a one-shot batch job (§6 "invocation
// contract"), so these are pushed to an optional Pushgateway after the
// cycle completes rather than scraped from a long-lived endpoint.
type Metrics struct {
	SourceFetchTotal   *prometheus.CounterVec // labels: source
	SourceFetchErrors  *prometheus.CounterVec // labels: source
	SourceFetchedCount *prometheus.CounterVec // labels: source

	UpsertOutcomes *prometheus.CounterVec // labels: status={new,updated,unchanged,error}

	DedupLinksCreated prometheus.Counter
	DedupPairsChecked prometheus.Counter

	CycleDuration prometheus.Histogram
	CyclesRun     prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates Metrics bound to a fresh registry, so each invocation
// of the batch process starts from a clean set of values to push.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		SourceFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismic_syncer",
			Name:      "source_fetch_total",
			Help:      "Source adapter fetch attempts by catalog.",
		}, []string{"source"}),
		SourceFetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismic_syncer",
			Name:      "source_fetch_errors_total",
			Help:      "Source adapter fetch failures by catalog (transport/parse).",
		}, []string{"source"}),
		SourceFetchedCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismic_syncer",
			Name:      "source_fetched_records_total",
			Help:      "Raw records returned by a catalog's adapter.",
		}, []string{"source"}),
		UpsertOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismic_syncer",
			Name:      "upsert_outcomes_total",
			Help:      "Upsert Engine outcomes by status.",
		}, []string{"status"}),
		DedupLinksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seismic_syncer",
			Name:      "dedup_links_created_total",
			Help:      "Duplicate links created by the dedup sweep.",
		}),
		DedupPairsChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seismic_syncer",
			Name:      "dedup_pairs_checked_total",
			Help:      "Candidate pairs evaluated by the dedup sweep.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seismic_syncer",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one full orchestrator cycle.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		CyclesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seismic_syncer",
			Name:      "cycles_run_total",
			Help:      "Completed orchestrator cycles.",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.SourceFetchTotal,
		m.SourceFetchErrors,
		m.SourceFetchedCount,
		m.UpsertOutcomes,
		m.DedupLinksCreated,
		m.DedupPairsChecked,
		m.CycleDuration,
		m.CyclesRun,
	)

	return m
}

// Push sends the accumulated metrics to the given Pushgateway URL under job
// "seismic_syncer". A no-op when url is empty (PROMETHEUS_PUSHGATEWAY_URL
// unset, the default).
func (m *Metrics) Push(url string) error {
	if url == "" {
		return nil
	}
	return push.New(url, "seismic_syncer").Gatherer(m.registry).Push()
}
