package tracker

import (
	"slices"
	"strings"
	"time"
)

// Sort directions accepted by SortConfig.
const (
	Ascending  = "ascending"
	Descending = "descending"
)

// Sort keys with dedicated comparison rules. Any other key compares the
// named field as a case-insensitive string.
const (
	SortByDate   = "date"
	SortByStatus = "status"
)

// Criteria selects applications in Filter. Empty fields match everything.
type Criteria struct {
	Position string
	Company  string
	Location string
	// Status must match exactly unless it is empty or StatusAll.
	Status string
}

// SortConfig describes how Sort orders applications.
type SortConfig struct {
	Key       string
	Direction string
}

// Filter returns the applications matching every non-empty criterion, in
// their original order. Text criteria are case-insensitive substring matches.
func Filter(apps []Application, c Criteria) []Application {
	out := make([]Application, 0, len(apps))
	for _, app := range apps {
		if !containsFold(app.Position, c.Position) ||
			!containsFold(app.Company, c.Company) ||
			!containsFold(app.Location, c.Location) {
			continue
		}
		if c.Status != "" && c.Status != StatusAll && app.Status != c.Status {
			continue
		}
		out = append(out, app)
	}
	return out
}

// Sort returns a new slice ordered by cfg. The input is left untouched and
// equal elements keep their relative order. statusOrder ranks statuses when
// sorting by status; unknown statuses rank before every known one.
func Sort(apps []Application, cfg SortConfig, statusOrder []string) []Application {
	out := slices.Clone(apps)
	if cfg.Key == "" {
		return out
	}
	if statusOrder == nil {
		statusOrder = DefaultStatusOrder
	}

	cmp := compareBy(cfg.Key, statusOrder)
	if cfg.Direction == Descending {
		asc := cmp
		cmp = func(a, b Application) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func compareBy(key string, statusOrder []string) func(a, b Application) int {
	switch key {
	case SortByDate:
		return func(a, b Application) int {
			return parseDate(a.Date).Compare(parseDate(b.Date))
		}
	case SortByStatus:
		return func(a, b Application) int {
			return slices.Index(statusOrder, a.Status) - slices.Index(statusOrder, b.Status)
		}
	default:
		return func(a, b Application) int {
			return strings.Compare(strings.ToLower(field(a, key)), strings.ToLower(field(b, key)))
		}
	}
}

// parseDate reads a YYYY-MM-DD or RFC 3339 date. Missing or unreadable dates
// are treated as the Unix epoch.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Unix(0, 0).UTC()
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Unix(0, 0).UTC()
}

func field(app Application, key string) string {
	switch key {
	case "position":
		return app.Position
	case "company":
		return app.Company
	case "location":
		return app.Location
	case "salary":
		return app.Salary
	case "url":
		return app.URL
	case "notes":
		return app.Notes
	case "applicationId", "id":
		return app.ID
	default:
		return ""
	}
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
