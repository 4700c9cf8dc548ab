package repository

import (
	"context"

	"meeting-scribe/internal/domain/model"
)

type EmbeddingRepository interface {
	BulkInsert(ctx context.Context, chunks []*model.EmbeddingChunk) error
	ListByMeeting(ctx context.Context, meetingID string) ([]*model.EmbeddingChunk, error)
	DeleteByMeeting(ctx context.Context, meetingID string) error
}
