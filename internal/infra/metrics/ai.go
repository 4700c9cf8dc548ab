package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(aiCallsLatencyMs, keyRotationsTotal, keyPoolExhaustedTotal)
}

var (
	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds, by operation.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"op", "success"},
	)

	keyRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_key_rotations_total",
			Help: "Count of credential failovers to the next pool entry.",
		},
	)

	keyPoolExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_key_pool_exhausted_total",
			Help: "Count of operations that failed on every credential.",
		},
	)
)

func ObserveAICall(op string, latencyMs int64, success bool) {
	aiCallsLatencyMs.WithLabelValues(norm(op), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncKeyRotation() { keyRotationsTotal.Inc() }

func IncKeyPoolExhausted() { keyPoolExhaustedTotal.Inc() }
