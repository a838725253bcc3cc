package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/apptracker/application-tracker/internal/core/domain"
	"github.com/apptracker/application-tracker/internal/core/ports"
)

type ProfileService struct {
	repo ports.ProfileRepository
	log  zerolog.Logger
}

func NewProfileService(repo ports.ProfileRepository, log zerolog.Logger) *ProfileService {
	return &ProfileService{repo: repo, log: log}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*ports.ProfileInput, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	p, err := s.repo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &ports.ProfileInput{UserID: p.UserID, Email: p.Email, FirstName: p.FirstName, LastName: p.LastName}, nil
}

// SaveProfile replaces the principal's profile.
func (s *ProfileService) SaveProfile(ctx context.Context, in ports.ProfileInput) (*ports.ProfileInput, error) {
	if in.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	p := &domain.Profile{
		UserID:    in.UserID,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	s.log.Info().Str("user_id", in.UserID).Msg("profile saved")
	return &in, nil
}

// SessionService revokes credentials through a RevocationStore.
type SessionService struct {
	store ports.RevocationStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewSessionService(store ports.RevocationStore, log zerolog.Logger) *SessionService {
	return &SessionService{store: store, log: log, now: time.Now}
}

// RevokeSessions rejects every credential issued to userID up to now.
func (s *SessionService) RevokeSessions(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	if err := s.store.RevokeBefore(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info().Str("user_id", userID).Msg("sessions revoked")
	return nil
}

var (
	_ ports.ProfileService = (*ProfileService)(nil)
	_ ports.SessionService = (*SessionService)(nil)
)
