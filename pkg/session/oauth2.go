package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// OAuth2Source signs in with the resource owner password grant and refreshes
// with the refresh token grant.
type OAuth2Source struct {
	cfg        *oauth2.Config
	idVerifier *oidc.IDTokenVerifier
	httpClient *http.Client
	useIDToken bool
}

type OAuth2Option func(*OAuth2Source)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(hc *http.Client) OAuth2Option {
	return func(s *OAuth2Source) { s.httpClient = hc }
}

// WithIDTokenBearer sends the OpenID id_token as the bearer credential
// instead of the access token.
func WithIDTokenBearer() OAuth2Option {
	return func(s *OAuth2Source) { s.useIDToken = true }
}

// WithIDTokenVerifier checks id_tokens returned by the provider.
func WithIDTokenVerifier(v *oidc.IDTokenVerifier) OAuth2Option {
	return func(s *OAuth2Source) { s.idVerifier = v }
}

func NewOAuth2Source(cfg *oauth2.Config, opts ...OAuth2Option) *OAuth2Source {
	s := &OAuth2Source{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DiscoverOAuth2Source resolves the token endpoint and id_token keys of
// issuer through OpenID discovery.
func DiscoverOAuth2Source(ctx context.Context, issuer, clientID, clientSecret string, scopes []string, opts ...OAuth2Option) (*OAuth2Source, error) {
	s := NewOAuth2Source(nil, opts...)
	provider, err := oidc.NewProvider(s.clientContext(ctx), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, oidc.ScopeOfflineAccess}
	}
	s.cfg = &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes,
	}
	if s.idVerifier == nil {
		s.idVerifier = provider.Verifier(&oidc.Config{ClientID: clientID})
	}
	return s, nil
}

// Exchange implements CredentialSource.
func (s *OAuth2Source) Exchange(ctx context.Context, creds SubjectCredentials) (*Credential, error) {
	tok, err := s.cfg.PasswordCredentialsToken(s.clientContext(ctx), creds.Username, creds.Password)
	if err != nil {
		return nil, classifyOAuth2(err)
	}
	return s.credential(ctx, tok)
}

// Refresh implements CredentialSource.
func (s *OAuth2Source) Refresh(ctx context.Context, current *Credential) (*Credential, error) {
	if current == nil || current.RefreshToken == "" {
		return nil, &AuthFailure{Reason: InvalidCredentials, Code: "no_refresh_token", Message: "credential cannot be refreshed"}
	}
	ts := s.cfg.TokenSource(s.clientContext(ctx), &oauth2.Token{
		RefreshToken: current.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := ts.Token()
	if err != nil {
		return nil, classifyOAuth2(err)
	}
	return s.credential(ctx, tok)
}

func (s *OAuth2Source) clientContext(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func (s *OAuth2Source) credential(ctx context.Context, tok *oauth2.Token) (*Credential, error) {
	bearer := tok.AccessToken
	rawID, _ := tok.Extra("id_token").(string)
	if s.useIDToken {
		if rawID == "" {
			return nil, &AuthFailure{Reason: Unknown, Message: "provider returned no id_token"}
		}
		bearer = rawID
	}

	cred := &Credential{Token: bearer, RefreshToken: tok.RefreshToken, ExpiresAt: tok.Expiry}

	if rawID != "" && s.idVerifier != nil {
		idt, err := s.idVerifier.Verify(s.clientContext(ctx), rawID)
		if err != nil {
			return nil, &AuthFailure{Reason: Unknown, Message: "id_token rejected", Cause: err}
		}
		cred.Subject = idt.Subject
		cred.IssuedAt = idt.IssuedAt
		if s.useIDToken {
			cred.ExpiresAt = idt.Expiry
		}
	}

	// Subject and lifetime of the bearer itself. The API verifies the
	// signature; the client only needs the attributes.
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(bearer, &rc); err == nil {
		if cred.Subject == "" {
			cred.Subject = rc.Subject
		}
		if cred.IssuedAt.IsZero() && rc.IssuedAt != nil {
			cred.IssuedAt = rc.IssuedAt.Time
		}
		if rc.ExpiresAt != nil && (cred.ExpiresAt.IsZero() || rc.ExpiresAt.Time.Before(cred.ExpiresAt)) {
			cred.ExpiresAt = rc.ExpiresAt.Time
		}
	}
	return cred, nil
}

func classifyOAuth2(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil && re.Response.StatusCode == http.StatusTooManyRequests {
			return &AuthFailure{Reason: RateLimited, Code: re.ErrorCode, Message: re.ErrorDescription, Cause: err}
		}
		return Classify(re.ErrorCode, re.ErrorDescription, err)
	}
	return &AuthFailure{Reason: Unknown, Message: err.Error(), Cause: err}
}

var _ CredentialSource = (*OAuth2Source)(nil)
