package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus collectors updated by a Monitor.
type Metrics struct {
	samples       prometheus.Counter
	records       prometheus.Counter
	events        *prometheus.CounterVec
	notifyErrors  prometheus.Counter
	weightReports prometheus.Counter
	rawWeight     prometheus.Gauge
	median        prometheus.Gauge
	deviation     prometheus.Gauge
	windowSamples prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		samples: f.NewCounter(prometheus.CounterOpts{
			Name: "potwatch_samples_total",
			Help: "Total weight samples processed",
		}),
		records: f.NewCounter(prometheus.CounterOpts{
			Name: "potwatch_stats_records_total",
			Help: "Total window statistics records produced",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "potwatch_events_total",
			Help: "Total pot events detected",
		}, []string{"kind"}),
		notifyErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "potwatch_notify_errors_total",
			Help: "Total failed event or weight deliveries",
		}),
		weightReports: f.NewCounter(prometheus.CounterOpts{
			Name: "potwatch_weight_reports_total",
			Help: "Total periodic weight reports sent",
		}),
		rawWeight: f.NewGauge(prometheus.GaugeOpts{
			Name: "potwatch_weight_grams",
			Help: "Most recent raw weight sample",
		}),
		median: f.NewGauge(prometheus.GaugeOpts{
			Name: "potwatch_window_median_grams",
			Help: "Median weight of the latest statistics window",
		}),
		deviation: f.NewGauge(prometheus.GaugeOpts{
			Name: "potwatch_window_deviation_grams",
			Help: "Deviation around the median of the latest statistics window",
		}),
		windowSamples: f.NewGauge(prometheus.GaugeOpts{
			Name: "potwatch_window_samples",
			Help: "Number of samples in the latest statistics window",
		}),
	}
}
