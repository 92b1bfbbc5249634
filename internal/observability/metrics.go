package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	SamplesConsumed prometheus.Counter
	SamplesProduced prometheus.Counter
	ParseErrors     prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	RepublishedSamples      prometheus.Histogram
	SeriesLength            prometheus.Gauge

	// View API metrics.
	ViewRequests *prometheus.CounterVec // labels: mode={TempAnomaly,CO2ppm,both,invalid}, outcome={success,error}
	ViewCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SamplesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "samples_consumed_total",
			Help:      "Total readings read from the source topic.",
		}),
		SamplesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "samples_produced_total",
			Help:      "Total smoothed samples written to the sink topic.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "parse_errors_total",
			Help:      "Total readings skipped because they could not be parsed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_etl",
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-smooth-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RepublishedSamples: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_etl",
			Name:      "republished_samples",
			Help:      "Smoothed samples published per batch, including changed neighbours.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 150, 250},
		}),
		SeriesLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_etl",
			Name:      "series_length",
			Help:      "Number of years held in the accumulated series.",
		}),
		ViewRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "view_requests_total",
			Help:      "View builds by metric mode and outcome.",
		}, []string{"mode", "outcome"}),
		ViewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "view_cache_total",
			Help:      "View cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.SamplesConsumed,
		m.SamplesProduced,
		m.ParseErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.RepublishedSamples,
		m.SeriesLength,
		m.ViewRequests,
		m.ViewCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SamplesConsumed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "samples_consumed_total"}),
		SamplesProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "samples_produced_total"}),
		ParseErrors:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_etl", Name: "parse_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "climate_etl", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_etl", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_etl", Name: "batch_processing_duration_seconds"}),
		RepublishedSamples:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_etl", Name: "republished_samples"}),
		SeriesLength:            prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "climate_etl", Name: "series_length"}),
		ViewRequests:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "climate_etl", Name: "view_requests_total"}, []string{"mode", "outcome"}),
		ViewCache:               prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "climate_etl", Name: "view_cache_total"}, []string{"result"}),
	}
}
