package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"meeting-scribe/internal/domain"
	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

func (r *profileRepo) Save(ctx context.Context, p *model.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO profiles (id, email, name, password_hash, created_at)
VALUES ($1,$2,$3,$4,$5);`
	_, err := r.pool.Exec(ctx, q, p.ID, p.Email, p.Name, p.PasswordHash, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *profileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.findBy(ctx, `SELECT id, email, name, password_hash, created_at FROM profiles WHERE email=$1;`, email)
}

func (r *profileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	return r.findBy(ctx, `SELECT id, email, name, password_hash, created_at FROM profiles WHERE id=$1;`, id)
}

func (r *profileRepo) findBy(ctx context.Context, q string, arg any) (*model.Profile, error) {
	var p model.Profile
	err := r.pool.QueryRow(ctx, q, arg).Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &p, nil
}
