package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation Prometheus metrics.
var (
	RecommendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobrec",
			Name:      "recommend_requests_total",
			Help:      "Total number of recommendation requests",
		},
		[]string{"kind", "status"}, // kind: "text" / "similar"
	)

	RecommendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobrec",
			Name:      "recommend_duration_seconds",
			Help:      "Recommendation latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"kind"},
	)

	RecommendEmptyTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jobrec",
			Name:      "recommend_no_matches_total",
			Help:      "Recommendation requests whose text had no vocabulary overlap",
		},
	)

	RecommendCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobrec",
			Name:      "recommend_cache_total",
			Help:      "Recommendation cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ModelReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobrec",
			Name:      "model_reloads_total",
			Help:      "Artifact loads by outcome",
		},
		[]string{"status"},
	)

	CorpusRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jobrec",
			Name:      "corpus_rows",
			Help:      "Postings in the loaded artifact",
		},
	)

	VocabularySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jobrec",
			Name:      "vocabulary_size",
			Help:      "Terms in the loaded artifact",
		},
	)
)

var recMetricsRegistered bool

// RegisterRecommendMetrics registers recommendation metrics. Must be called once from main.
func RegisterRecommendMetrics() {
	if recMetricsRegistered {
		return
	}
	prometheus.MustRegister(RecommendRequestsTotal)
	prometheus.MustRegister(RecommendDuration)
	prometheus.MustRegister(RecommendEmptyTotal)
	prometheus.MustRegister(RecommendCacheTotal)
	prometheus.MustRegister(ModelReloadsTotal)
	prometheus.MustRegister(CorpusRows)
	prometheus.MustRegister(VocabularySize)
	recMetricsRegistered = true
}
