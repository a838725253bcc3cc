package handler

import (
	"github.com/apptracker/application-tracker/internal/core/ports"
	"github.com/apptracker/application-tracker/pkg/tracker"
)

func toSaveInput(userID, applicationID, idempotencyKey string, r saveApplicationRequest) ports.SaveApplicationInput {
	return ports.SaveApplicationInput{
		UserID:         userID,
		ApplicationID:  applicationID,
		IdempotencyKey: idempotencyKey,
		Position:       r.Position,
		Company:        r.Company,
		Location:       r.Location,
		Salary:         r.Salary,
		Date:           r.Date,
		Status:         r.Status,
		URL:            r.URL,
		Notes:          r.Notes,
	}
}

func toApplicationResponse(r ports.ApplicationResult) tracker.Application {
	return tracker.Application{
		ID:       r.ApplicationID,
		UserID:   r.UserID,
		Position: r.Position,
		Company:  r.Company,
		Location: r.Location,
		Salary:   r.Salary,
		Date:     r.Date,
		Status:   r.Status,
		URL:      r.URL,
		Notes:    r.Notes,
	}
}

func toProfileResponse(p *ports.ProfileInput) tracker.Profile {
	return tracker.Profile{
		UserID:    p.UserID,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
}
