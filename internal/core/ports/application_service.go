package ports

import (
	"context"
)

// SaveApplicationInput carries all data needed to create or replace an
// application.
type SaveApplicationInput struct {
	UserID string
	// ApplicationID selects the record to replace. Empty creates a new one.
	ApplicationID  string
	IdempotencyKey string

	Position string
	Company  string
	Location string
	Salary   string
	Date     string
	Status   string
	URL      string
	Notes    string
}

// ApplicationResult is a stored application as returned to callers.
type ApplicationResult struct {
	UserID        string
	ApplicationID string
	Position      string
	Company       string
	Location      string
	Salary        string
	Date          string
	Status        string
	URL           string
	Notes         string
}

// SaveApplicationResult is returned by SaveApplication.
type SaveApplicationResult struct {
	Application ApplicationResult
	Created     bool
	// Replayed is true when the Idempotency-Key matched an earlier create.
	Replayed bool
}

// ApplicationService defines use-case operations for applications.
type ApplicationService interface {
	// ListApplications returns the principal's applications, or only the one
	// named by applicationID when it is non-empty.
	ListApplications(ctx context.Context, userID, applicationID string) ([]ApplicationResult, error)
	SaveApplication(ctx context.Context, input SaveApplicationInput) (*SaveApplicationResult, error)
	DeleteApplication(ctx context.Context, userID, applicationID string) (*ApplicationResult, error)
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// ProfileService defines use-case operations for profiles.
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*ProfileInput, error)
	SaveProfile(ctx context.Context, input ProfileInput) (*ProfileInput, error)
}

// SessionService revokes a principal's outstanding credentials.
type SessionService interface {
	RevokeSessions(ctx context.Context, userID string) error
}
