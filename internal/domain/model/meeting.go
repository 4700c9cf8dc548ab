package model

import "time"

type MeetingStatus string

const (
	MeetingStatusUploaded   MeetingStatus = "uploaded"
	MeetingStatusProcessing MeetingStatus = "processing"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusFailed     MeetingStatus = "failed"
)

// Meeting is the job descriptor for a single uploaded recording. The row is
// created when the recording finishes staging to object storage and is then
// mutated only through status transitions by the worker.
type Meeting struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"user_id"`
	Title                string        `json:"title"`
	MeetingDate          string        `json:"date"`
	Participants         []string      `json:"participants"`
	RecordingURL         string        `json:"recording_url"`
	RecordingContentType string        `json:"recording_content_type"`
	Status               MeetingStatus `json:"status"`
	EmbeddingReady       bool          `json:"embedding_ready"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

func NewMeeting(id, userID, title, date string, participants []string) *Meeting {
	now := time.Now()
	return &Meeting{
		ID:           id,
		UserID:       userID,
		Title:        title,
		MeetingDate:  date,
		Participants: participants,
		Status:       MeetingStatusUploaded,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ProcessingJob is the payload published to the job queue. Replaying the
// same payload is safe: every downstream write is keyed by MeetingID.
type ProcessingJob struct {
	MeetingID            string `json:"meeting_id"`
	UserID               string `json:"user_id"`
	RecordingURL         string `json:"recording_url"`
	RecordingContentType string `json:"recording_content_type"`
}
