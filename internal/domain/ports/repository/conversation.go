package repository

import (
	"context"

	"meeting-scribe/internal/domain/model"
)

// ConversationRepository is append-only chat history per meeting.
type ConversationRepository interface {
	Append(ctx context.Context, turn *model.ConversationTurn) error
	// Recent returns up to n most recent turns, oldest first.
	Recent(ctx context.Context, meetingID string, n int) ([]*model.ConversationTurn, error)
	DeleteByMeeting(ctx context.Context, meetingID string) error
}
