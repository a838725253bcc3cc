// Package tracker holds the wire types shared by the resource API and its
// clients, plus the pure filter and sort helpers used to present them.
package tracker

// Status values an application moves through. StatusToApply is assigned when a
// record is saved without one.
const (
	StatusToApply       = "To Apply"
	StatusApplied       = "Applied"
	StatusInterviewing  = "Interviewing"
	StatusOfferReceived = "Offer Received"
	StatusRejected      = "Rejected"
	StatusAccepted      = "Accepted"
)

// StatusAll disables the status criterion in Filter.
const StatusAll = "All"

// ApplicationIDPrefix prefixes server generated application ids.
const ApplicationIDPrefix = "app#"

// DefaultStatusOrder is the priority list used when sorting by status.
var DefaultStatusOrder = []string{
	StatusToApply,
	StatusApplied,
	StatusInterviewing,
	StatusOfferReceived,
	StatusAccepted,
	StatusRejected,
}

// Application is a single tracked job application.
type Application struct {
	ID       string `json:"applicationId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Position string `json:"position"`
	Company  string `json:"company"`
	Location string `json:"location,omitempty"`
	Salary   string `json:"salary,omitempty"`
	// Date is a calendar date formatted as YYYY-MM-DD.
	Date   string `json:"date,omitempty"`
	Status string `json:"status,omitempty"`
	URL    string `json:"url,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// Profile is the per-principal profile record.
type Profile struct {
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ValidStatus reports whether s is one of the known application statuses.
func ValidStatus(s string) bool {
	for _, known := range DefaultStatusOrder {
		if s == known {
			return true
		}
	}
	return false
}
