package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"meeting-scribe/internal/ai"
	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/adapter"
	"meeting-scribe/internal/domain/ports/repository"
)

var _ TranscriptionUseCase = (*transcriptionUC)(nil)

// TranscriptionUseCase turns one recording into a persisted transcript
// record. It owns the status transitions uploaded -> processing ->
// completed; failed is settled by the job runner after retries.
type TranscriptionUseCase interface {
	Process(ctx context.Context, job model.ProcessingJob, recording []byte) error
}

type transcriptionUC struct {
	meetings    repository.MeetingRepository
	transcripts repository.TranscriptRepository
	tx          repository.TransactionManager
	analyzer    adapter.RecordingAnalyzer
	keyring     *ai.Keyring

	overloadRetries  int
	overloadCooldown time.Duration
	log              *zerolog.Logger
}

func NewTranscriptionUseCase(
	meetings repository.MeetingRepository,
	transcripts repository.TranscriptRepository,
	tx repository.TransactionManager,
	analyzer adapter.RecordingAnalyzer,
	keyring *ai.Keyring,
	overloadRetries int,
	overloadCooldown time.Duration,
	logger *zerolog.Logger,
) *transcriptionUC {
	l := logger.With().Str("component", "TranscriptionUC").Logger()
	return &transcriptionUC{
		meetings:         meetings,
		transcripts:      transcripts,
		tx:               tx,
		analyzer:         analyzer,
		keyring:          keyring,
		overloadRetries:  overloadRetries,
		overloadCooldown: overloadCooldown,
		log:              &l,
	}
}

func (t *transcriptionUC) Process(ctx context.Context, job model.ProcessingJob, recording []byte) error {
	if err := t.meetings.UpdateStatus(ctx, nil, job.MeetingID, model.MeetingStatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	analysis, err := t.extract(ctx, job, recording)
	if err != nil {
		return err
	}

	rec := &model.TranscriptRecord{
		MeetingID:   job.MeetingID,
		Transcript:  analysis.Transcript,
		Summary:     analysis.Summary,
		Highlights:  analysis.Highlights,
		ActionItems: analysis.ActionItems,
		CreatedAt:   time.Now(),
	}

	// Transcript and the completed flip land atomically so a crash between
	// the two cannot leave a completed meeting without a transcript.
	return t.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := t.transcripts.Save(ctx, tx, rec); err != nil {
			return fmt.Errorf("save transcript: %w", err)
		}
		if err := t.meetings.UpdateStatus(ctx, tx, job.MeetingID, model.MeetingStatusCompleted); err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}
		return nil
	})
}

// extract runs stage -> await -> analyze under credential rotation. Each
// credential stages its own copy: a staged file belongs to the credential
// that uploaded it and cannot be reused across the pool.
func (t *transcriptionUC) extract(ctx context.Context, job model.ProcessingJob, recording []byte) (*adapter.MeetingAnalysis, error) {
	var analysis *adapter.MeetingAnalysis
	err := t.keyring.Do(ctx, func(ctx context.Context, key string) error {
		staged, err := t.analyzer.Stage(ctx, key, recording, job.RecordingContentType, job.MeetingID)
		if err != nil {
			return err
		}
		if !t.analyzer.AwaitActive(ctx, key, staged) {
			return ai.ErrFileNotReady
		}

		analysis, err = t.withOverloadRetry(ctx, func() (*adapter.MeetingAnalysis, error) {
			return t.analyzer.Analyze(ctx, key, staged)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// withOverloadRetry retries the extraction call on the same credential
// while the provider reports overload. Any other failure is handed back
// to the rotation loop untouched.
func (t *transcriptionUC) withOverloadRetry(ctx context.Context, fn func() (*adapter.MeetingAnalysis, error)) (*adapter.MeetingAnalysis, error) {
	var (
		out *adapter.MeetingAnalysis
		err error
	)
	for attempt := 0; ; attempt++ {
		out, err = fn()
		if err == nil || !errors.Is(err, ai.ErrOverloaded) || attempt >= t.overloadRetries {
			return out, err
		}
		t.log.Warn().Err(err).Int("attempt", attempt+1).Msg("provider overloaded, cooling down")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.overloadCooldown):
		}
	}
}
