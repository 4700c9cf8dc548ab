package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"meeting-scribe/internal/domain"
	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/repository"
)

var _ repository.TranscriptRepository = (*transcriptRepo)(nil)

type transcriptRepo struct {
	pool *pgxpool.Pool
}

func NewTranscriptRepo(pool *pgxpool.Pool) *transcriptRepo {
	return &transcriptRepo{pool: pool}
}

// Save upserts the record keyed by meeting id so a replayed job overwrites
// instead of duplicating.
func (r *transcriptRepo) Save(ctx context.Context, qx repository.Tx, rec *model.TranscriptRecord) error {
	transcript, err := json.Marshal(rec.Transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	highlights, err := json.Marshal(rec.Highlights)
	if err != nil {
		return fmt.Errorf("marshal highlights: %w", err)
	}
	actionItems, err := json.Marshal(rec.ActionItems)
	if err != nil {
		return fmt.Errorf("marshal action items: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	const q = `
INSERT INTO meeting_details (meeting_id, transcript, summary, highlights, action_items, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (meeting_id) DO UPDATE SET
  transcript = EXCLUDED.transcript,
  summary = EXCLUDED.summary,
  highlights = EXCLUDED.highlights,
  action_items = EXCLUDED.action_items;`

	_, err = execSQL(ctx, r.pool, qx, q,
		rec.MeetingID, transcript, rec.Summary, highlights, actionItems, rec.CreatedAt)
	return err
}

func (r *transcriptRepo) FindByMeeting(ctx context.Context, meetingID string) (*model.TranscriptRecord, error) {
	const q = `
SELECT meeting_id, transcript, summary, highlights, action_items, created_at
FROM meeting_details WHERE meeting_id=$1;`

	var rec model.TranscriptRecord
	var transcript, highlights, actionItems []byte
	err := r.pool.QueryRow(ctx, q, meetingID).Scan(
		&rec.MeetingID, &transcript, &rec.Summary, &highlights, &actionItems, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(transcript, &rec.Transcript); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	_ = json.Unmarshal(highlights, &rec.Highlights)
	_ = json.Unmarshal(actionItems, &rec.ActionItems)
	return &rec, nil
}

func (r *transcriptRepo) DeleteByMeeting(ctx context.Context, meetingID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM meeting_details WHERE meeting_id=$1;`, meetingID)
	return err
}
