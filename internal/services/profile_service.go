package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"finderguard/internal/models"
	"finderguard/internal/timeutil"
)

type ProfileStore interface {
	Get(ctx context.Context, uid string) (models.Profile, error)
	Create(ctx context.Context, p models.Profile) (models.Profile, error)
	Update(ctx context.Context, p models.Profile) error
}

type DeviceTokenStore interface {
	Save(ctx context.Context, t models.DeviceToken) error
	Delete(ctx context.Context, token string) error
}

type ProfileService struct {
	Profiles ProfileStore
	Tokens   DeviceTokenStore
	Clock    timeutil.Clock
}

func validUsername(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 3 || n > 32 {
		return fmt.Errorf("%w: username must be 3 to 32 characters", models.ErrValidation)
	}
	return nil
}

// Onboard creates the profile of uid with the initial trust score.
func (s *ProfileService) Onboard(ctx context.Context, uid, username string) (models.Profile, error) {
	if uid == "" {
		return models.Profile{}, models.ErrForbidden
	}
	username = strings.TrimSpace(username)
	if err := validUsername(username); err != nil {
		return models.Profile{}, err
	}
	clock := s.Clock
	if clock == nil {
		clock = timeutil.System{}
	}
	return s.Profiles.Create(ctx, models.Profile{
		UID:        uid,
		Username:   username,
		TrustScore: models.InitialTrustScore,
		JoinedAt:   clock.Now(),
	})
}

// Get returns the profile of uid.
func (s *ProfileService) Get(ctx context.Context, uid string) (models.Profile, error) {
	p, err := s.Profiles.Get(ctx, uid)
	if errors.Is(err, models.ErrNoRecord) {
		return models.Profile{}, models.ErrProfileNotFound
	}
	return p, err
}

// Rename changes the username of uid. Trust fields are left untouched.
func (s *ProfileService) Rename(ctx context.Context, uid, username string) (models.Profile, error) {
	username = strings.TrimSpace(username)
	if err := validUsername(username); err != nil {
		return models.Profile{}, err
	}
	p, err := s.Get(ctx, uid)
	if err != nil {
		return models.Profile{}, err
	}
	p.Username = username
	if err := s.Profiles.Update(ctx, p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// RegisterDevice stores a push token of uid.
func (s *ProfileService) RegisterDevice(ctx context.Context, uid, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", models.ErrValidation)
	}
	return s.Tokens.Save(ctx, models.DeviceToken{UserID: uid, Token: token})
}

// UnregisterDevice removes a push token.
func (s *ProfileService) UnregisterDevice(ctx context.Context, token string) error {
	return s.Tokens.Delete(ctx, token)
}
