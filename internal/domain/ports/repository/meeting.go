package repository

import (
	"context"
	"time"

	"meeting-scribe/internal/domain/model"
)

type MeetingRepository interface {
	Save(ctx context.Context, qx Tx, m *model.Meeting) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Meeting, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Meeting, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	UpdateStatus(ctx context.Context, qx Tx, id string, status model.MeetingStatus) error
	SetEmbeddingReady(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// MarkStuckFailed flips meetings left in processing longer than
	// olderThan to failed and returns how many were reaped.
	MarkStuckFailed(ctx context.Context, olderThan time.Duration) (int, error)
}
