package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/apptracker/application-tracker/pkg/tracker"
)

// HeaderApplicationID names the header and query parameter carrying an
// application id.
const HeaderApplicationID = "Application-Id"

// GetApplications lists the caller's applications. A non-empty id restricts
// the result to that application.
func (c *Client) GetApplications(ctx context.Context, id string) ([]tracker.Application, error) {
	req := &Request{Method: http.MethodGet, Path: "/applications"}
	if id != "" {
		req.Query = url.Values{HeaderApplicationID: []string{id}}
	}
	resp, err := c.Do(ctx, req, c.policy)
	if err != nil {
		return nil, err
	}
	var apps []tracker.Application
	if err := json.Unmarshal(resp.Body, &apps); err != nil {
		return nil, fmt.Errorf("decode applications: %w", err)
	}
	return apps, nil
}

// SaveApplication creates app, or replaces it when app.ID is set. The saved
// record is returned.
func (c *Client) SaveApplication(ctx context.Context, app tracker.Application) (*tracker.Application, error) {
	return c.SaveApplicationIdempotent(ctx, app, "")
}

// SaveApplicationIdempotent is SaveApplication with an idempotency key that
// lets the server collapse retried creates into one record.
func (c *Client) SaveApplicationIdempotent(ctx context.Context, app tracker.Application, key string) (*tracker.Application, error) {
	body, err := json.Marshal(app)
	if err != nil {
		return nil, fmt.Errorf("encode application: %w", err)
	}
	req := &Request{
		Method:         http.MethodPost,
		Path:           "/applications",
		Body:           body,
		IdempotencyKey: key,
	}
	if app.ID != "" {
		req.Header = http.Header{HeaderApplicationID: []string{app.ID}}
	}
	resp, err := c.Do(ctx, req, c.policy)
	if err != nil {
		return nil, err
	}
	var saved tracker.Application
	if err := json.Unmarshal(resp.Body, &saved); err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	return &saved, nil
}

// DeleteApplication removes the application and returns the deleted record.
func (c *Client) DeleteApplication(ctx context.Context, id string) (*tracker.Application, error) {
	req := &Request{
		Method: http.MethodDelete,
		Path:   "/applications",
		Query:  url.Values{HeaderApplicationID: []string{id}},
	}
	resp, err := c.Do(ctx, req, c.policy)
	if err != nil {
		return nil, err
	}
	var deleted tracker.Application
	if err := json.Unmarshal(resp.Body, &deleted); err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	return &deleted, nil
}

// GetProfile fetches the caller's profile.
func (c *Client) GetProfile(ctx context.Context) (*tracker.Profile, error) {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/profiles"}, c.policy)
	if err != nil {
		return nil, err
	}
	var p tracker.Profile
	if err := json.Unmarshal(resp.Body, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// SaveProfile replaces the caller's profile.
func (c *Client) SaveProfile(ctx context.Context, p tracker.Profile) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = c.Do(ctx, &Request{Method: http.MethodPost, Path: "/profiles", Body: body}, c.policy)
	return err
}

// RevokeSessions asks the server to reject every credential issued to the
// caller so far, on every device.
func (c *Client) RevokeSessions(ctx context.Context) error {
	_, err := c.Do(ctx, &Request{Method: http.MethodDelete, Path: "/sessions"}, c.policy)
	return err
}
