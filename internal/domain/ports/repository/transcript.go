package repository

import (
	"context"

	"meeting-scribe/internal/domain/model"
)

// TranscriptRepository stores one TranscriptRecord per meeting id.
// Save is an upsert: replaying a job overwrites instead of duplicating.
type TranscriptRepository interface {
	Save(ctx context.Context, qx Tx, rec *model.TranscriptRecord) error
	FindByMeeting(ctx context.Context, meetingID string) (*model.TranscriptRecord, error)
	DeleteByMeeting(ctx context.Context, meetingID string) error
}
