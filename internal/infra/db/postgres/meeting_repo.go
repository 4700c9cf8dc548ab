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

var _ repository.MeetingRepository = (*meetingRepo)(nil)

type meetingRepo struct {
	pool *pgxpool.Pool
}

func NewMeetingRepo(pool *pgxpool.Pool) *meetingRepo {
	return &meetingRepo{pool: pool}
}

func (r *meetingRepo) Save(ctx context.Context, qx repository.Tx, m *model.Meeting) error {
	m.UpdatedAt = time.Now()
	participants, err := json.Marshal(m.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}

	const q = `
INSERT INTO meetings (id, user_id, title, meeting_date, participants, recording_url, recording_content_type, status, embedding_ready, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,COALESCE($10,NOW()),$11)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  meeting_date = EXCLUDED.meeting_date,
  participants = EXCLUDED.participants,
  recording_url = EXCLUDED.recording_url,
  recording_content_type = EXCLUDED.recording_content_type,
  status = EXCLUDED.status,
  embedding_ready = EXCLUDED.embedding_ready,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, qx, q,
		m.ID, m.UserID, m.Title, m.MeetingDate, participants, m.RecordingURL,
		m.RecordingContentType, string(m.Status), m.EmbeddingReady, m.CreatedAt, m.UpdatedAt)
	return err
}

const meetingColumns = `id, user_id, title, meeting_date, participants, recording_url, recording_content_type, status, embedding_ready, created_at, updated_at`

func scanMeeting(row pgx.Row) (*model.Meeting, error) {
	var m model.Meeting
	var participants []byte
	var status string
	err := row.Scan(&m.ID, &m.UserID, &m.Title, &m.MeetingDate, &participants,
		&m.RecordingURL, &m.RecordingContentType, &status, &m.EmbeddingReady,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	m.Status = model.MeetingStatus(status)
	if len(participants) > 0 {
		_ = json.Unmarshal(participants, &m.Participants)
	}
	return &m, nil
}

func (r *meetingRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Meeting, error) {
	row, err := pickRow(ctx, r.pool, qx, `SELECT `+meetingColumns+` FROM meetings WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanMeeting(row)
}

func (r *meetingRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Meeting, error) {
	const q = `SELECT ` + meetingColumns + `
FROM meetings WHERE user_id=$1
ORDER BY meeting_date DESC, created_at DESC
OFFSET $2 LIMIT $3;`

	rows, err := r.pool.Query(ctx, q, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *meetingRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM meetings WHERE user_id=$1;`, userID).Scan(&n)
	return n, err
}

func (r *meetingRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.MeetingStatus) error {
	tag, err := execSQL(ctx, r.pool, qx,
		`UPDATE meetings SET status=$2, updated_at=NOW() WHERE id=$1;`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *meetingRepo) SetEmbeddingReady(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meetings SET embedding_ready=TRUE, updated_at=NOW() WHERE id=$1;`, id)
	return err
}

func (r *meetingRepo) MarkStuckFailed(ctx context.Context, olderThan time.Duration) (int, error) {
	const q = `
UPDATE meetings SET status=$1, updated_at=NOW()
WHERE status=$2 AND updated_at < NOW() - $3::interval;`

	tag, err := r.pool.Exec(ctx, q,
		string(model.MeetingStatusFailed), string(model.MeetingStatusProcessing),
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *meetingRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meetings WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
