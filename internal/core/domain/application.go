package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/apptracker/application-tracker/pkg/tracker"
)

// ProfileRecordID is the record id reserved for the principal's profile. It
// can never be used as an application id.
const ProfileRecordID = "profile"

var (
	ErrApplicationNotFound   = errors.New("application not found")
	ErrApplicationIDRequired = errors.New("application id is required")
	ErrReservedApplicationID = errors.New("application id is reserved")
	ErrInvalidStatus         = errors.New("invalid application status")
	ErrIdempotencyConflict   = errors.New("a request with this idempotency key is still in progress")
	ErrUnauthenticated       = errors.New("missing principal")
)

// Application is a job application owned by one principal. Records are keyed
// by (UserID, ID).
type Application struct {
	UserID    string    `bson:"user_id"`
	ID        string    `bson:"application_id"`
	Position  string    `bson:"position"`
	Company   string    `bson:"company"`
	Location  string    `bson:"location,omitempty"`
	Salary    string    `bson:"salary,omitempty"`
	Date      string    `bson:"date,omitempty"`
	Status    string    `bson:"status"`
	URL       string    `bson:"url,omitempty"`
	Notes     string    `bson:"notes,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// IsReservedID reports whether id collides with a non-application record.
func IsReservedID(id string) bool {
	return strings.EqualFold(strings.TrimSpace(id), ProfileRecordID)
}

// NormalizeStatus returns the status to store, defaulting to "To Apply".
func NormalizeStatus(status string) (string, error) {
	if status == "" {
		return tracker.StatusToApply, nil
	}
	if !tracker.ValidStatus(status) {
		return "", ErrInvalidStatus
	}
	return status, nil
}
