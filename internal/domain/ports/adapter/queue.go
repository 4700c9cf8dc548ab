package adapter

import (
	"context"

	"meeting-scribe/internal/domain/model"
)

// JobPublisher enqueues a processing job for the worker. Delivery is
// at-least-once; the payload must stay idempotent-safe to replay.
type JobPublisher interface {
	Publish(ctx context.Context, job model.ProcessingJob) error
}

// NotificationSink delivers a terminal job status to the owner's channel.
// Invoked fire-and-forget: a delivery failure never affects job status.
type NotificationSink interface {
	Notify(ctx context.Context, userID, meetingID, status string) error
}
