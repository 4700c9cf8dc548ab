package model

import "time"

// EmbeddingChunk is one retrieval unit of a meeting transcript. Chunks are
// immutable once written and all chunks of a meeting share the same
// embedding model and dimensionality.
type EmbeddingChunk struct {
	ID        int64     `json:"id"`
	MeetingID string    `json:"meeting_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}
