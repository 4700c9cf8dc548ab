package usecase

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meeting-scribe/internal/domain"
	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/adapter"
	"meeting-scribe/internal/domain/ports/repository"
)

var _ MeetingUseCase = (*meetingUC)(nil)

// MeetingDetail is a meeting joined with its transcript record.
// Transcript is nil until processing completes.
type MeetingDetail struct {
	Meeting    *model.Meeting
	Transcript *model.TranscriptRecord
}

type MeetingUseCase interface {
	// Ingest stores the recording, creates the meeting row and enqueues the
	// processing job. Returns the meeting in the uploaded state.
	Ingest(ctx context.Context, userID, title, date string, participants []string, filename, contentType string, content []byte) (*model.Meeting, error)
	List(ctx context.Context, userID string, page, pageSize int) ([]*model.Meeting, int, error)
	Get(ctx context.Context, userID, meetingID string) (*MeetingDetail, error)
	Delete(ctx context.Context, userID, meetingID string) error
}

// Recording formats accepted for upload.
var allowedContentTypes = map[string]struct{}{
	"audio/mpeg":      {},
	"audio/mp4":       {},
	"audio/wav":       {},
	"audio/x-wav":     {},
	"audio/webm":      {},
	"audio/ogg":       {},
	"audio/flac":      {},
	"video/mp4":       {},
	"video/webm":      {},
	"video/quicktime": {},
}

type meetingUC struct {
	meetings    repository.MeetingRepository
	transcripts repository.TranscriptRepository
	embeddings  repository.EmbeddingRepository
	convos      repository.ConversationRepository
	storage     adapter.ObjectStorage
	keyFromURL  func(string) string
	publisher   adapter.JobPublisher
	log         *zerolog.Logger
}

func NewMeetingUseCase(
	meetings repository.MeetingRepository,
	transcripts repository.TranscriptRepository,
	embeddings repository.EmbeddingRepository,
	convos repository.ConversationRepository,
	storage adapter.ObjectStorage,
	keyFromURL func(string) string,
	publisher adapter.JobPublisher,
	logger *zerolog.Logger,
) *meetingUC {
	l := logger.With().Str("component", "MeetingUC").Logger()
	return &meetingUC{
		meetings:    meetings,
		transcripts: transcripts,
		embeddings:  embeddings,
		convos:      convos,
		storage:     storage,
		keyFromURL:  keyFromURL,
		publisher:   publisher,
		log:         &l,
	}
}

func (u *meetingUC) Ingest(ctx context.Context, userID, title, date string, participants []string, filename, contentType string, content []byte) (*model.Meeting, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(content) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidArgument, contentType)
	}

	id := uuid.NewString()
	path := fmt.Sprintf("%s/%s%s", userID, id, extensionFor(filename, contentType))

	if err := u.storage.Upload(ctx, path, content, contentType); err != nil {
		return nil, fmt.Errorf("store recording: %w", err)
	}

	m := model.NewMeeting(id, userID, title, date, participants)
	m.RecordingURL = u.storage.PublicURL(path)
	m.RecordingContentType = contentType

	if err := u.meetings.Save(ctx, nil, m); err != nil {
		// The row never landed; drop the orphaned object.
		if rmErr := u.storage.Remove(ctx, path); rmErr != nil {
			u.log.Warn().Err(rmErr).Str("path", path).Msg("orphaned recording not removed")
		}
		return nil, fmt.Errorf("save meeting: %w", err)
	}

	job := model.ProcessingJob{
		MeetingID:            m.ID,
		UserID:               userID,
		RecordingURL:         m.RecordingURL,
		RecordingContentType: contentType,
	}
	if err := u.publisher.Publish(ctx, job); err != nil {
		if stErr := u.meetings.UpdateStatus(ctx, nil, m.ID, model.MeetingStatusFailed); stErr != nil {
			u.log.Error().Err(stErr).Str("meeting_id", m.ID).Msg("could not mark unenqueued meeting failed")
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	u.log.Info().Str("meeting_id", m.ID).Str("user_id", userID).Msg("meeting ingested")
	return m, nil
}

func (u *meetingUC) List(ctx context.Context, userID string, page, pageSize int) ([]*model.Meeting, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	total, err := u.meetings.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	items, err := u.meetings.ListByUser(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (u *meetingUC) Get(ctx context.Context, userID, meetingID string) (*MeetingDetail, error) {
	m, err := u.owned(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}

	detail := &MeetingDetail{Meeting: m}
	rec, err := u.transcripts.FindByMeeting(ctx, meetingID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	} else {
		detail.Transcript = rec
	}
	return detail, nil
}

// Delete removes the meeting and everything derived from it. Database
// rows go first; the recording object is removed best-effort afterwards.
func (u *meetingUC) Delete(ctx context.Context, userID, meetingID string) error {
	m, err := u.owned(ctx, userID, meetingID)
	if err != nil {
		return err
	}

	if err := u.embeddings.DeleteByMeeting(ctx, meetingID); err != nil {
		return err
	}
	if err := u.transcripts.DeleteByMeeting(ctx, meetingID); err != nil {
		return err
	}
	if err := u.convos.DeleteByMeeting(ctx, meetingID); err != nil {
		return err
	}
	if err := u.meetings.Delete(ctx, meetingID); err != nil {
		return err
	}

	if m.RecordingURL != "" {
		if err := u.storage.Remove(ctx, u.keyFromURL(m.RecordingURL)); err != nil {
			u.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("recording object not removed")
		}
	}
	return nil
}

func (u *meetingUC) owned(ctx context.Context, userID, meetingID string) (*model.Meeting, error) {
	m, err := u.meetings.FindByID(ctx, nil, meetingID)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return m, nil
}

// extensionFor prefers the uploaded filename's extension and falls back
// to one derived from the content type.
func extensionFor(filename, contentType string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
