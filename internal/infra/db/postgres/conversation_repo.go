package postgres

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/repository"
	"meeting-scribe/internal/infra/redis"
	"meeting-scribe/internal/infra/security"
)

var _ repository.ConversationRepository = (*conversationRepo)(nil)

// conversationRepo stores chat turns encrypted at rest when an
// EncryptionService is supplied. A nil service stores plaintext.
type conversationRepo struct {
	pool  *pgxpool.Pool
	cache *redis.HistoryCache
	enc   *security.EncryptionService
}

func NewConversationRepo(pool *pgxpool.Pool, cache *redis.HistoryCache, enc *security.EncryptionService) *conversationRepo {
	return &conversationRepo{pool: pool, cache: cache, enc: enc}
}

func (r *conversationRepo) Append(ctx context.Context, turn *model.ConversationTurn) error {
	if turn.ID == "" {
		turn.ID = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	msg := turn.Message
	if r.enc != nil {
		ct, err := r.enc.Encrypt(msg)
		if err != nil {
			return err
		}
		msg = ct
	}

	const q = `
INSERT INTO chats (id, meeting_id, sender, message, created_at)
VALUES ($1,$2,$3,$4,$5);`
	if _, err := r.pool.Exec(ctx, q, turn.ID, turn.MeetingID, string(turn.Sender), msg, turn.CreatedAt); err != nil {
		return err
	}
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, turn.MeetingID)
	}
	return nil
}

func (r *conversationRepo) Recent(ctx context.Context, meetingID string, n int) ([]*model.ConversationTurn, error) {
	if r.cache != nil {
		if turns, ok := r.cache.Get(ctx, meetingID, n); ok {
			return turns, nil
		}
	}

	const q = `
SELECT id, meeting_id, sender, message, created_at
FROM chats WHERE meeting_id=$1
ORDER BY created_at DESC LIMIT $2;`

	rows, err := r.pool.Query(ctx, q, meetingID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*model.ConversationTurn
	for rows.Next() {
		var t model.ConversationTurn
		var sender string
		if err := rows.Scan(&t.ID, &t.MeetingID, &sender, &t.Message, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Sender = model.Sender(sender)
		if r.enc != nil {
			// Rows written before encryption was enabled stay readable.
			if pt, err := r.enc.Decrypt(t.Message); err == nil {
				t.Message = pt
			}
		}
		turns = append(turns, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	if r.cache != nil && len(turns) > 0 {
		_ = r.cache.Store(ctx, meetingID, turns)
	}
	return turns, nil
}

func (r *conversationRepo) DeleteByMeeting(ctx context.Context, meetingID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM chats WHERE meeting_id=$1;`, meetingID); err != nil {
		return err
	}
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, meetingID)
	}
	return nil
}
