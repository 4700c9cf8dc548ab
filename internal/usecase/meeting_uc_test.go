package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"meeting-scribe/internal/config"
	"meeting-scribe/internal/domain"
	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/infra/logging"
)

type meetingFixture struct {
	uc        *meetingUC
	meetings  *memMeetingRepo
	storage   *fakeStorage
	publisher *fakePublisher
	convos    *memConvoRepo
}

func newMeetingFixture(t *testing.T) *meetingFixture {
	t.Helper()
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	f := &meetingFixture{
		meetings:  newMemMeetingRepo(),
		storage:   newFakeStorage(),
		publisher: &fakePublisher{},
		convos:    newMemConvoRepo(),
	}
	f.uc = NewMeetingUseCase(f.meetings, newMemTranscriptRepo(), newMemEmbeddingRepo(), f.convos,
		f.storage, fakeKeyFromURL, f.publisher, log)
	return f
}

func TestIngest_StoresRecordingAndEnqueues(t *testing.T) {
	f := newMeetingFixture(t)

	m, err := f.uc.Ingest(context.Background(), "u1", "weekly sync", "2026-08-28",
		[]string{"Alice", "Bob"}, "sync.mp3", "audio/mpeg", []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Status != model.MeetingStatusUploaded {
		t.Fatalf("status = %s, want uploaded", m.Status)
	}

	wantPath := "u1/" + m.ID + ".mp3"
	if _, ok := f.storage.objects[wantPath]; !ok {
		t.Fatalf("recording not stored at %q, have %v", wantPath, f.storage.objects)
	}
	if !strings.HasSuffix(m.RecordingURL, wantPath) {
		t.Fatalf("recording url %q does not carry the object path", m.RecordingURL)
	}

	if len(f.publisher.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(f.publisher.jobs))
	}
	job := f.publisher.jobs[0]
	if job.MeetingID != m.ID || job.UserID != "u1" || job.RecordingURL != m.RecordingURL {
		t.Fatalf("job payload wrong: %+v", job)
	}
}

func TestIngest_RejectsUnsupportedContentType(t *testing.T) {
	f := newMeetingFixture(t)

	_, err := f.uc.Ingest(context.Background(), "u1", "notes", "", nil,
		"notes.pdf", "application/pdf", []byte("x"))
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if len(f.storage.objects) != 0 {
		t.Fatal("nothing should be uploaded for rejected types")
	}
}

func TestIngest_PublishFailureMarksMeetingFailed(t *testing.T) {
	f := newMeetingFixture(t)
	f.publisher.err = errors.New("broker down")

	_, err := f.uc.Ingest(context.Background(), "u1", "weekly sync", "", nil,
		"a.mp3", "audio/mpeg", []byte("audio"))
	if err == nil {
		t.Fatal("expected error")
	}

	for _, m := range f.meetings.byID {
		if m.Status != model.MeetingStatusFailed {
			t.Fatalf("status = %s, want failed", m.Status)
		}
	}
}

func TestGet_JoinsTranscriptWhenPresent(t *testing.T) {
	f := newMeetingFixture(t)
	m, _ := f.uc.Ingest(context.Background(), "u1", "sync", "", nil, "a.mp3", "audio/mpeg", []byte("x"))

	detail, err := f.uc.Get(context.Background(), "u1", m.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Transcript != nil {
		t.Fatal("no transcript expected before processing")
	}

	_ = f.uc.transcripts.Save(context.Background(), nil, &model.TranscriptRecord{
		MeetingID: m.ID, Summary: "done",
		Transcript: []model.TranscriptSegment{{Speaker: "A", Timestamp: "0", Text: "hi"}},
	})
	detail, err = f.uc.Get(context.Background(), "u1", m.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Transcript == nil || detail.Transcript.Summary != "done" {
		t.Fatalf("transcript not joined: %+v", detail.Transcript)
	}
}

func TestGet_OtherUsersMeetingForbidden(t *testing.T) {
	f := newMeetingFixture(t)
	m, _ := f.uc.Ingest(context.Background(), "u1", "sync", "", nil, "a.mp3", "audio/mpeg", []byte("x"))

	if _, err := f.uc.Get(context.Background(), "u2", m.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDelete_RemovesRowsAndRecording(t *testing.T) {
	f := newMeetingFixture(t)
	m, _ := f.uc.Ingest(context.Background(), "u1", "sync", "", nil, "a.mp3", "audio/mpeg", []byte("x"))
	_ = f.convos.Append(context.Background(), &model.ConversationTurn{MeetingID: m.ID, Sender: model.SenderUser, Message: "hi"})

	if err := f.uc.Delete(context.Background(), "u1", m.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.meetings.FindByID(context.Background(), nil, m.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("meeting row still present")
	}
	if len(f.storage.objects) != 0 {
		t.Fatalf("recording object still present: %v", f.storage.objects)
	}
	if turns, _ := f.convos.Recent(context.Background(), m.ID, 10); len(turns) != 0 {
		t.Fatal("chat history not removed")
	}
}

func TestList_Paginates(t *testing.T) {
	f := newMeetingFixture(t)
	for i := 0; i < 3; i++ {
		_, _ = f.uc.Ingest(context.Background(), "u1", "sync", "", nil, "a.mp3", "audio/mpeg", []byte("x"))
	}

	_, total, err := f.uc.List(context.Background(), "u1", 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
}
