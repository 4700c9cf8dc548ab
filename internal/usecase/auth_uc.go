package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"meeting-scribe/internal/domain"
	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/repository"
)

var _ AuthUseCase = (*authUC)(nil)

var ErrBadCredentials = errors.New("invalid email or password")

// Audience separates the two token kinds issued from the same secret, so a
// refresh token can never pass the access-token guard and vice versa.
const (
	audienceAccess  = "access"
	audienceRefresh = "refresh"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthUseCase interface {
	Register(ctx context.Context, email, name, password string) (*model.Profile, error)
	// Login verifies the password and returns signed access and refresh tokens.
	Login(ctx context.Context, email, password string) (TokenPair, *model.Profile, error)
	// Refresh exchanges a valid refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Verify parses an access token and returns the profile id it was issued for.
	Verify(token string) (string, error)
	Profile(ctx context.Context, userID string) (*model.Profile, error)
}

type authUC struct {
	profiles   repository.ProfileRepository
	jwtSecret  []byte
	tokenTTL   time.Duration
	refreshTTL time.Duration
	log        *zerolog.Logger
}

func NewAuthUseCase(profiles repository.ProfileRepository, jwtSecret string, tokenTTL, refreshTTL time.Duration, logger *zerolog.Logger) *authUC {
	l := logger.With().Str("component", "AuthUC").Logger()
	return &authUC{profiles: profiles, jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL, refreshTTL: refreshTTL, log: &l}
}

func (a *authUC) Register(ctx context.Context, email, name, password string) (*model.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") || len(password) < 8 {
		return nil, domain.ErrInvalidArgument
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &model.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := a.profiles.Save(ctx, p); err != nil {
		return nil, err
	}
	a.log.Info().Str("user_id", p.ID).Msg("profile registered")
	return p, nil
}

func (a *authUC) Login(ctx context.Context, email, password string) (TokenPair, *model.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, err := a.profiles.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, nil, ErrBadCredentials
		}
		return TokenPair{}, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return TokenPair{}, nil, ErrBadCredentials
	}

	access, err := a.issue(p.ID, audienceAccess, a.tokenTTL)
	if err != nil {
		return TokenPair{}, nil, err
	}
	refresh, err := a.issue(p.ID, audienceRefresh, a.refreshTTL)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, p, nil
}

func (a *authUC) Refresh(ctx context.Context, refreshToken string) (string, error) {
	uid, err := a.parse(refreshToken, audienceRefresh)
	if err != nil {
		return "", ErrBadCredentials
	}
	// A deleted account must not be able to mint fresh access tokens.
	if _, err := a.profiles.FindByID(ctx, uid); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrBadCredentials
		}
		return "", err
	}
	return a.issue(uid, audienceAccess, a.tokenTTL)
}

func (a *authUC) Verify(token string) (string, error) {
	return a.parse(token, audienceAccess)
}

func (a *authUC) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	return a.profiles.FindByID(ctx, userID)
}

func (a *authUC) issue(subject, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (a *authUC) parse(token, audience string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithAudience(audience))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token missing subject")
	}
	return claims.Subject, nil
}
