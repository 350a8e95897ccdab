package aggregator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/huntable/jangter/models"
)

// Metrics instruments aggregated searches. All methods tolerate a nil
// receiver so instrumentation stays optional.
type Metrics struct {
	registry        *prometheus.Registry
	searchTotal     prometheus.Counter
	searchDuration  prometheus.Histogram
	resultsPerQuery prometheus.Histogram
	sourceResults   *prometheus.CounterVec
	sourceEmpty     *prometheus.CounterVec
}

// NewMetrics builds the metric set on its own registry, keeping the
// default registry's Go runtime collectors out of the scrape output.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jangter",
			Name:      "searches_total",
			Help:      "Number of aggregated searches served.",
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "jangter",
			Name:      "search_duration_seconds",
			Help:      "End-to-end aggregated search latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		resultsPerQuery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "jangter",
			Name:      "search_results",
			Help:      "Products returned per aggregated search, after dedupe and truncation.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		sourceResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jangter",
			Name:      "source_products_total",
			Help:      "Products contributed by each source before dedupe.",
		}, []string{"source"}),
		sourceEmpty: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jangter",
			Name:      "source_empty_total",
			Help:      "Searches where a source contributed zero products.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(
		m.searchTotal,
		m.searchDuration,
		m.resultsPerQuery,
		m.sourceResults,
		m.sourceEmpty,
	)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) observeSearch(results int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.searchTotal.Inc()
	m.searchDuration.Observe(elapsed.Seconds())
	m.resultsPerQuery.Observe(float64(results))
}

func (m *Metrics) observeSource(src models.Source, count int) {
	if m == nil {
		return
	}
	if count == 0 {
		m.sourceEmpty.WithLabelValues(string(src)).Inc()
		return
	}
	m.sourceResults.WithLabelValues(string(src)).Add(float64(count))
}
