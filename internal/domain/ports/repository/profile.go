package repository

import (
	"context"

	"meeting-scribe/internal/domain/model"
)

type ProfileRepository interface {
	Save(ctx context.Context, p *model.Profile) error
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}
