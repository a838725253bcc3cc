// Package session owns the signed-in principal's credential on the client
// side: it signs in through a CredentialSource, refreshes the credential when
// it is about to expire, and pushes every state change to subscribers.
package session

import (
	"context"
	"time"
)

// Credential is a signed bearer token and the attributes read from it. A
// credential is never modified; refresh replaces it.
type Credential struct {
	Token        string    `json:"token"`
	Subject      string    `json:"subject"`
	IssuedAt     time.Time `json:"issuedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RefreshToken string    `json:"refreshToken,omitempty"`
}

// Expired reports whether the credential is past its expiry at now. A zero
// ExpiresAt never expires.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// refreshDue reports whether the credential expires within skew of now.
func (c *Credential) refreshDue(now time.Time, skew time.Duration) bool {
	return !c.ExpiresAt.IsZero() && !now.Add(skew).Before(c.ExpiresAt)
}

// Session is a snapshot of the authentication state.
type Session struct {
	Credential    *Credential
	Authenticated bool
	// LastError is the most recent sign-in or refresh failure.
	LastError error
}

// Principal returns the signed-in subject, or "" when signed out.
func (s Session) Principal() string {
	if !s.Authenticated || s.Credential == nil {
		return ""
	}
	return s.Credential.Subject
}

// SubjectCredentials are the end-user's sign-in secrets.
type SubjectCredentials struct {
	Username string
	Password string
}

// CredentialSource exchanges end-user credentials for bearer credentials and
// refreshes them. Failures should be *AuthFailure; a refresh failing with
// InvalidCredentials signals that the source invalidated the session.
type CredentialSource interface {
	Exchange(ctx context.Context, creds SubjectCredentials) (*Credential, error)
	Refresh(ctx context.Context, current *Credential) (*Credential, error)
}

// Store persists the credential between process runs.
type Store interface {
	Load() (*Credential, error)
	Save(c *Credential) error
	Delete() error
}
