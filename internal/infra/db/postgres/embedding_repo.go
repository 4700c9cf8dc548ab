package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/repository"
)

var _ repository.EmbeddingRepository = (*embeddingRepo)(nil)

type embeddingRepo struct {
	pool *pgxpool.Pool
}

func NewEmbeddingRepo(pool *pgxpool.Pool) *embeddingRepo {
	return &embeddingRepo{pool: pool}
}

// BulkInsert writes one row per chunk in a single batch. Chunks are
// immutable once written.
func (r *embeddingRepo) BulkInsert(ctx context.Context, chunks []*model.EmbeddingChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const q = `
INSERT INTO meeting_embeddings (meeting_id, content, embedding, model, created_at)
VALUES ($1,$2,$3,$4,NOW());`
	for _, c := range chunks {
		emb, err := json.Marshal(c.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		batch.Queue(q, c.MeetingID, c.Content, emb, c.Model)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range chunks {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *embeddingRepo) ListByMeeting(ctx context.Context, meetingID string) ([]*model.EmbeddingChunk, error) {
	const q = `
SELECT id, meeting_id, content, embedding, model, created_at
FROM meeting_embeddings WHERE meeting_id=$1 ORDER BY id;`

	rows, err := r.pool.Query(ctx, q, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.EmbeddingChunk
	for rows.Next() {
		var c model.EmbeddingChunk
		var emb []byte
		if err := rows.Scan(&c.ID, &c.MeetingID, &c.Content, &emb, &c.Model, &c.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(emb, &c.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding %d: %w", c.ID, err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *embeddingRepo) DeleteByMeeting(ctx context.Context, meetingID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM meeting_embeddings WHERE meeting_id=$1;`, meetingID)
	return err
}
