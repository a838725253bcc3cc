package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/apptracker/application-tracker/internal/core/domain"
	"github.com/apptracker/application-tracker/internal/core/ports"
	"github.com/apptracker/application-tracker/pkg/tracker"
)

type ApplicationService struct {
	repo  ports.ApplicationRepository
	idem  ports.IdempotencyStore
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// NewApplicationService returns an ApplicationService. idem may be nil, in
// which case Idempotency-Key is ignored.
func NewApplicationService(repo ports.ApplicationRepository, idem ports.IdempotencyStore, log zerolog.Logger) *ApplicationService {
	return &ApplicationService{
		repo:  repo,
		idem:  idem,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		newID: newApplicationID,
	}
}

func newApplicationID() string {
	return tracker.ApplicationIDPrefix + uuid.NewString()
}

// ListApplications returns domain.ErrApplicationNotFound when nothing matches.
func (s *ApplicationService) ListApplications(ctx context.Context, userID, applicationID string) ([]ports.ApplicationResult, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if domain.IsReservedID(applicationID) {
		return nil, domain.ErrReservedApplicationID
	}

	if applicationID != "" {
		app, err := s.repo.Find(ctx, userID, applicationID)
		if err != nil {
			return nil, fmt.Errorf("get application: %w", err)
		}
		return []ports.ApplicationResult{toResult(app)}, nil
	}

	apps, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	if len(apps) == 0 {
		return nil, domain.ErrApplicationNotFound
	}
	out := make([]ports.ApplicationResult, 0, len(apps))
	for _, app := range apps {
		out = append(out, toResult(app))
	}
	return out, nil
}

// SaveApplication replaces the named application, or creates a new one with
// a generated id. A create carrying an Idempotency-Key that was already used
// returns the application the first request created.
func (s *ApplicationService) SaveApplication(ctx context.Context, in ports.SaveApplicationInput) (*ports.SaveApplicationResult, error) {
	if in.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	id := strings.TrimSpace(in.ApplicationID)
	if domain.IsReservedID(id) {
		return nil, domain.ErrReservedApplicationID
	}
	status, err := domain.NormalizeStatus(in.Status)
	if err != nil {
		return nil, err
	}

	created := id == ""
	claimed := false
	if created {
		id = s.newID()
		if in.IdempotencyKey != "" && s.idem != nil {
			ok, existing, err := s.idem.Claim(ctx, in.UserID, in.IdempotencyKey, id)
			if err != nil {
				s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("idempotency claim failed, saving anyway")
			} else if !ok {
				return s.replay(ctx, in.UserID, in.IdempotencyKey, existing)
			} else {
				claimed = true
			}
		}
	}

	app := &domain.Application{
		UserID:    in.UserID,
		ID:        id,
		Position:  in.Position,
		Company:   in.Company,
		Location:  in.Location,
		Salary:    in.Salary,
		Date:      in.Date,
		Status:    status,
		URL:       in.URL,
		Notes:     in.Notes,
		UpdatedAt: s.now(),
	}
	if err := s.repo.Upsert(ctx, app); err != nil {
		if claimed {
			if rerr := s.idem.Release(ctx, in.UserID, in.IdempotencyKey); rerr != nil {
				s.log.Warn().Err(rerr).Str("idempotency_key", in.IdempotencyKey).Msg("release idempotency key")
			}
		}
		return nil, fmt.Errorf("save application: %w", err)
	}

	s.log.Info().
		Str("user_id", in.UserID).
		Str("application_id", id).
		Bool("created", created).
		Msg("application saved")

	return &ports.SaveApplicationResult{Application: toResult(app), Created: created}, nil
}

func (s *ApplicationService) replay(ctx context.Context, userID, key, existingID string) (*ports.SaveApplicationResult, error) {
	app, err := s.repo.Find(ctx, userID, existingID)
	if err != nil {
		if errors.Is(err, domain.ErrApplicationNotFound) {
			return nil, domain.ErrIdempotencyConflict
		}
		return nil, fmt.Errorf("idempotent replay: %w", err)
	}
	s.log.Info().Str("idempotency_key", key).Str("application_id", existingID).Msg("idempotent replay")
	return &ports.SaveApplicationResult{Application: toResult(app), Replayed: true}, nil
}

// DeleteApplication removes the application and returns it.
func (s *ApplicationService) DeleteApplication(ctx context.Context, userID, applicationID string) (*ports.ApplicationResult, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(applicationID) == "" {
		return nil, domain.ErrApplicationIDRequired
	}
	if domain.IsReservedID(applicationID) {
		return nil, domain.ErrReservedApplicationID
	}
	app, err := s.repo.Delete(ctx, userID, applicationID)
	if err != nil {
		return nil, fmt.Errorf("delete application: %w", err)
	}
	s.log.Info().Str("user_id", userID).Str("application_id", applicationID).Msg("application deleted")
	res := toResult(app)
	return &res, nil
}

func toResult(app *domain.Application) ports.ApplicationResult {
	return ports.ApplicationResult{
		UserID:        app.UserID,
		ApplicationID: app.ID,
		Position:      app.Position,
		Company:       app.Company,
		Location:      app.Location,
		Salary:        app.Salary,
		Date:          app.Date,
		Status:        app.Status,
		URL:           app.URL,
		Notes:         app.Notes,
	}
}

var _ ports.ApplicationService = (*ApplicationService)(nil)
