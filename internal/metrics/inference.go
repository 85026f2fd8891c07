package metrics

import "github.com/prometheus/client_golang/prometheus"

// Inference (embedding + sentiment) Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caredesk",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caredesk",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caredesk",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caredesk",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SentimentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caredesk",
			Name:      "sentiment_requests_total",
			Help:      "Total number of sentiment classification requests",
		},
		[]string{"model", "status"},
	)

	SentimentRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caredesk",
			Name:      "sentiment_request_duration_seconds",
			Help:      "Sentiment classification request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	SentimentFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "caredesk",
			Name:      "sentiment_fallbacks_total",
			Help:      "Total number of degraded sentiment assessments served from the neutral fallback",
		},
	)

	EscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caredesk",
			Name:      "escalations_total",
			Help:      "Total number of messages flagged for escalation",
		},
		[]string{"reason"}, // "confidence" / "keyword" / "frustration"
	)
)

var inferenceMetricsRegistered bool

// RegisterInferenceMetrics registers Prometheus inference metrics. Must be called once from main.
func RegisterInferenceMetrics() {
	if inferenceMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(SentimentRequestsTotal)
	prometheus.MustRegister(SentimentRequestDuration)
	prometheus.MustRegister(SentimentFallbacksTotal)
	prometheus.MustRegister(EscalationsTotal)
	inferenceMetricsRegistered = true
}
