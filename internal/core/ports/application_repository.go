package ports

import (
	"context"
	"time"

	"github.com/apptracker/application-tracker/internal/core/domain"
)

// ApplicationRepository defines persistence operations for applications.
// Every operation is scoped to one principal.
type ApplicationRepository interface {
	// ListByUser returns all of the principal's applications.
	ListByUser(ctx context.Context, userID string) ([]*domain.Application, error)
	// Find returns domain.ErrApplicationNotFound when no record matches.
	Find(ctx context.Context, userID, applicationID string) (*domain.Application, error)
	// Upsert creates or replaces the record keyed by (UserID, ID).
	Upsert(ctx context.Context, app *domain.Application) error
	// Delete removes the record and returns it.
	Delete(ctx context.Context, userID, applicationID string) (*domain.Application, error)
}

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	Find(ctx context.Context, userID string) (*domain.Profile, error)
	Upsert(ctx context.Context, p *domain.Profile) error
}

// IdempotencyStore remembers which application a create request produced.
type IdempotencyStore interface {
	// Claim binds key to applicationID unless it is already bound. When it
	// is, claimed is false and existing holds the bound id.
	Claim(ctx context.Context, userID, key, applicationID string) (claimed bool, existing string, err error)
	// Release forgets key so a failed create can be retried.
	Release(ctx context.Context, userID, key string) error
}

// RevocationStore records per-principal credential revocations.
type RevocationStore interface {
	RevokeBefore(ctx context.Context, userID string, at time.Time) error
	IsRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}
