package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/apptracker/application-tracker/internal/api/middleware"
	"github.com/apptracker/application-tracker/internal/core/domain"
	"github.com/apptracker/application-tracker/internal/core/ports"
	"github.com/apptracker/application-tracker/pkg/tracker"
)

type stubApplicationService struct {
	listFn   func(ctx context.Context, userID, applicationID string) ([]ports.ApplicationResult, error)
	saveFn   func(ctx context.Context, in ports.SaveApplicationInput) (*ports.SaveApplicationResult, error)
	deleteFn func(ctx context.Context, userID, applicationID string) (*ports.ApplicationResult, error)
}

func (s *stubApplicationService) ListApplications(ctx context.Context, userID, applicationID string) ([]ports.ApplicationResult, error) {
	return s.listFn(ctx, userID, applicationID)
}

func (s *stubApplicationService) SaveApplication(ctx context.Context, in ports.SaveApplicationInput) (*ports.SaveApplicationResult, error) {
	return s.saveFn(ctx, in)
}

func (s *stubApplicationService) DeleteApplication(ctx context.Context, userID, applicationID string) (*ports.ApplicationResult, error) {
	return s.deleteFn(ctx, userID, applicationID)
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ContextUserID, "alice")
	return c, rec
}

func TestApplicationHandler_List(t *testing.T) {
	stub := &stubApplicationService{
		listFn: func(_ context.Context, userID, applicationID string) ([]ports.ApplicationResult, error) {
			if userID != "alice" || applicationID != "" {
				t.Fatalf("unexpected args: %q %q", userID, applicationID)
			}
			return []ports.ApplicationResult{
				{UserID: "alice", ApplicationID: "app#1", Position: "SRE", Status: tracker.StatusApplied},
			}, nil
		},
	}
	c, rec := newTestContext(http.MethodGet, "/applications", "")

	if err := NewApplicationHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var apps []tracker.Application
	if err := json.Unmarshal(rec.Body.Bytes(), &apps); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(apps) != 1 || apps[0].ID != "app#1" || apps[0].UserID != "alice" {
		t.Fatalf("unexpected payload: %+v", apps)
	}
}

func TestApplicationHandler_ListReadsIDFromQueryOrHeader(t *testing.T) {
	var got []string
	stub := &stubApplicationService{
		listFn: func(_ context.Context, _, applicationID string) ([]ports.ApplicationResult, error) {
			got = append(got, applicationID)
			return []ports.ApplicationResult{{ApplicationID: applicationID}}, nil
		},
	}
	h := NewApplicationHandler(stub)

	c, _ := newTestContext(http.MethodGet, "/applications?Application-Id=app%231", "")
	_ = h.List(c)
	c, _ = newTestContext(http.MethodGet, "/applications?application-id=app%232", "")
	_ = h.List(c)
	c, _ = newTestContext(http.MethodGet, "/applications", "")
	c.Request().Header.Set("Application-Id", "app#3")
	_ = h.List(c)

	if strings.Join(got, ",") != "app#1,app#2,app#3" {
		t.Fatalf("unexpected ids: %v", got)
	}
}

func TestApplicationHandler_ListPropagatesDomainErrors(t *testing.T) {
	stub := &stubApplicationService{
		listFn: func(context.Context, string, string) ([]ports.ApplicationResult, error) {
			return nil, domain.ErrReservedApplicationID
		},
	}
	c, _ := newTestContext(http.MethodGet, "/applications?Application-Id=profile", "")

	if err := NewApplicationHandler(stub).List(c); !errors.Is(err, domain.ErrReservedApplicationID) {
		t.Fatalf("expected ErrReservedApplicationID, got %v", err)
	}
}

func TestApplicationHandler_RequiresPrincipal(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/applications", "")
	c.Set(middleware.ContextUserID, "")

	err := NewApplicationHandler(&stubApplicationService{}).List(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestApplicationHandler_SaveCreate(t *testing.T) {
	stub := &stubApplicationService{
		saveFn: func(_ context.Context, in ports.SaveApplicationInput) (*ports.SaveApplicationResult, error) {
			if in.UserID != "alice" || in.ApplicationID != "" || in.IdempotencyKey != "k1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.SaveApplicationResult{
				Application: ports.ApplicationResult{UserID: "alice", ApplicationID: "app#new", Position: in.Position, Company: in.Company, Status: tracker.StatusToApply},
				Created:     true,
			}, nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/applications",
		`{"applicationId":"ignored","userId":"mallory","position":"SRE","company":"Acme","date":"2025-03-01"}`)
	c.Request().Header.Set("Idempotency-Key", "k1")

	if err := NewApplicationHandler(stub).Save(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var app tracker.Application
	if err := json.Unmarshal(rec.Body.Bytes(), &app); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec.Code != http.StatusOK || app.ID != "app#new" || app.UserID != "alice" {
		t.Fatalf("unexpected response %d %+v", rec.Code, app)
	}
}

func TestApplicationHandler_SaveUpdateUsesHeader(t *testing.T) {
	stub := &stubApplicationService{
		saveFn: func(_ context.Context, in ports.SaveApplicationInput) (*ports.SaveApplicationResult, error) {
			if in.ApplicationID != "app#1" {
				t.Fatalf("expected header id, got %q", in.ApplicationID)
			}
			return &ports.SaveApplicationResult{Application: ports.ApplicationResult{ApplicationID: "app#1"}}, nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/applications", `{"position":"SRE","company":"Acme"}`)
	c.Request().Header.Set("Application-Id", "app#1")

	if err := NewApplicationHandler(stub).Save(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestApplicationHandler_SaveValidation(t *testing.T) {
	cases := map[string]string{
		"missing position": `{"company":"Acme"}`,
		"bad date":         `{"position":"SRE","company":"Acme","date":"03/01/2025"}`,
		"bad url":          `{"position":"SRE","company":"Acme","url":"not a url"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodPost, "/applications", body)
			err := NewApplicationHandler(&stubApplicationService{}).Save(c)
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %v", err)
			}
		})
	}

	c, _ := newTestContext(http.MethodPost, "/applications", `{"position":`)
	err := NewApplicationHandler(&stubApplicationService{}).Save(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %v", err)
	}
}

func TestApplicationHandler_Delete(t *testing.T) {
	stub := &stubApplicationService{
		deleteFn: func(_ context.Context, userID, applicationID string) (*ports.ApplicationResult, error) {
			if applicationID == "" {
				return nil, domain.ErrApplicationIDRequired
			}
			return &ports.ApplicationResult{UserID: userID, ApplicationID: applicationID, Position: "SRE"}, nil
		},
	}
	h := NewApplicationHandler(stub)

	c, rec := newTestContext(http.MethodDelete, "/applications?application-id=app%231", "")
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var app tracker.Application
	_ = json.Unmarshal(rec.Body.Bytes(), &app)
	if app.ID != "app#1" || app.Position != "SRE" {
		t.Fatalf("expected deleted record, got %+v", app)
	}

	c, _ = newTestContext(http.MethodDelete, "/applications", "")
	if err := h.Delete(c); !errors.Is(err, domain.ErrApplicationIDRequired) {
		t.Fatalf("expected ErrApplicationIDRequired, got %v", err)
	}
}
