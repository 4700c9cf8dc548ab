package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(chatQuestionsTotal, chunksEmbeddedTotal) }

var (
	chatQuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_questions_total",
			Help: "RAG chat questions answered, by outcome.",
		},
		[]string{"outcome"}, // 'answered', 'fallback', 'no_match', 'error'
	)

	chunksEmbeddedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_chunks_embedded_total",
			Help: "Transcript chunks embedded and persisted.",
		},
	)
)

func IncChatQuestion(outcome string) { chatQuestionsTotal.WithLabelValues(norm(outcome)).Inc() }

func AddChunksEmbedded(n int) { chunksEmbeddedTotal.Add(float64(n)) }
