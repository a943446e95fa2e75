package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the correlation pipeline and
// the ingestion server.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram

	// Visibility pass.
	VisibilityResolutions *prometheus.CounterVec // labels: outcome={los,nlos,unresolved}, source={traced,cached}

	// Ducting pass.
	DuctDaysProcessed prometheus.Counter
	DuctDaysSkipped   *prometheus.CounterVec // labels: reason={ledger,los,unknown_visibility,no_station,no_record,fetch_error}
	DuctZonesFound    prometheus.Counter
	SoundingFetches   *prometheus.CounterVec // labels: outcome={success,error}

	// Ingestion server.
	IngestRequests     prometheus.Counter
	IngestObservations prometheus.Counter
	IngestErrors       prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.RunDuration,
		m.VisibilityResolutions,
		m.DuctDaysProcessed,
		m.DuctDaysSkipped,
		m.DuctZonesFound,
		m.SoundingFetches,
		m.IngestRequests,
		m.IngestObservations,
		m.IngestErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "duct_correlator",
			Name:      "pipeline_running",
			Help:      "1 while a correlation run is active, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "duct_correlator",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete correlation run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		VisibilityResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duct_correlator",
			Name:      "visibility_resolutions_total",
			Help:      "Gateway visibility resolutions by outcome and source.",
		}, []string{"outcome", "source"}),
		DuctDaysProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duct_correlator",
			Name:      "duct_days_processed_total",
			Help:      "Gateway/day units for which a duct profile was produced.",
		}),
		DuctDaysSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duct_correlator",
			Name:      "duct_days_skipped_total",
			Help:      "Gateway/day units skipped, by reason.",
		}, []string{"reason"}),
		DuctZonesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duct_correlator",
			Name:      "duct_zones_found_total",
			Help:      "Duct zones classified across all processed profiles.",
		}),
		SoundingFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duct_correlator",
			Name:      "sounding_fetches_total",
			Help:      "Sounding archive retrievals by outcome.",
		}, []string{"outcome"}),
		IngestRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duct_correlator",
			Name:      "ingest_requests_total",
			Help:      "Uplink payloads received by the ingestion server.",
		}),
		IngestObservations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duct_correlator",
			Name:      "ingest_observations_total",
			Help:      "Observation rows appended to the measurement log.",
		}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duct_correlator",
			Name:      "ingest_errors_total",
			Help:      "Uplink payloads rejected or failed to persist.",
		}),
	}
}
