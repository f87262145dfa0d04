package metrics

import "github.com/prometheus/client_golang/prometheus"

// Build pipeline Prometheus metrics.
var (
	BuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobrec",
			Name:      "builds_total",
			Help:      "Artifact builds by outcome",
		},
		[]string{"status"},
	)

	BuildStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobrec",
			Name:      "build_stage_duration_seconds",
			Help:      "Duration of each build stage in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"stage"}, // "load" / "normalize" / "fit" / "save"
	)
)

var buildMetricsRegistered bool

// RegisterBuildMetrics registers build metrics. Must be called once from main.
func RegisterBuildMetrics() {
	if buildMetricsRegistered {
		return
	}
	prometheus.MustRegister(BuildsTotal)
	prometheus.MustRegister(BuildStageDuration)
	buildMetricsRegistered = true
}
