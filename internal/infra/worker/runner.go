package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/adapter"
	"meeting-scribe/internal/domain/ports/repository"
	"meeting-scribe/internal/infra/metrics"
)

// Processor turns one recording into a persisted transcript. Implemented
// by the transcription use case.
type Processor interface {
	Process(ctx context.Context, job model.ProcessingJob, recording []byte) error
}

// Runner executes one queued job end to end: fetch the recording, run
// extraction, retry the whole job on failure, and settle a terminal
// status with exactly one owner notification.
type Runner struct {
	storage    adapter.ObjectStorage
	keyFromURL func(string) string
	processor  Processor
	meetings   repository.MeetingRepository
	notifier   adapter.NotificationSink

	maxRetries int
	retryDelay time.Duration
	log        *zerolog.Logger
}

func NewRunner(
	storage adapter.ObjectStorage,
	keyFromURL func(string) string,
	processor Processor,
	meetings repository.MeetingRepository,
	notifier adapter.NotificationSink,
	maxRetries int,
	retryDelay time.Duration,
	logger *zerolog.Logger,
) *Runner {
	l := logger.With().Str("component", "JobRunner").Logger()
	return &Runner{
		storage:    storage,
		keyFromURL: keyFromURL,
		processor:  processor,
		meetings:   meetings,
		notifier:   notifier,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		log:        &l,
	}
}

// Handle always settles the job; the returned error is reserved for
// context cancellation, where the delivery should be redelivered after
// restart instead of marked failed.
func (r *Runner) Handle(ctx context.Context, job model.ProcessingJob) error {
	log := r.log.With().Str("meeting_id", job.MeetingID).Str("user_id", job.UserID).Logger()

	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		lastErr = r.runOnce(ctx, job)
		if lastErr == nil {
			metrics.IncMeetingJob("completed")
			r.notify(job, model.MeetingStatusCompleted)
			log.Info().Int("attempt", attempt).Msg("meeting processed")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn().Err(lastErr).Int("attempt", attempt).Msg("processing attempt failed")
		if attempt < r.maxRetries {
			metrics.IncJobRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.retryDelay):
			}
		}
	}

	log.Error().Err(lastErr).Int("attempts", r.maxRetries).Msg("meeting processing failed")
	if err := r.meetings.UpdateStatus(ctx, nil, job.MeetingID, model.MeetingStatusFailed); err != nil {
		log.Error().Err(err).Msg("could not mark meeting failed")
	}
	metrics.IncMeetingJob("failed")
	r.notify(job, model.MeetingStatusFailed)
	return nil
}

func (r *Runner) runOnce(ctx context.Context, job model.ProcessingJob) error {
	key := r.keyFromURL(job.RecordingURL)
	recording, err := r.storage.Download(ctx, key)
	if err != nil {
		return err
	}
	return r.processor.Process(ctx, job, recording)
}

// notify is fire-and-forget with its own deadline so a slow or dead
// notification endpoint cannot hold a worker slot.
func (r *Runner) notify(job model.ProcessingJob, status model.MeetingStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.notifier.Notify(ctx, job.UserID, job.MeetingID, string(status)); err != nil {
		r.log.Warn().Err(err).Str("meeting_id", job.MeetingID).Msg("notification not delivered")
	}
}
