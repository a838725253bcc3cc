// Package authorizer turns an inbound bearer credential into an access
// decision. Authorize never fails: every path that cannot prove identity,
// including a panicking verifier, ends in Deny.
package authorizer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrMissingToken   = errors.New("authorization token missing")
	ErrMalformedToken = errors.New("authorization token malformed")
)

// Deny reasons reported to observers. They never leave the process.
const (
	ReasonMissingToken       = "missing_token"
	ReasonMalformedToken     = "malformed_token"
	ReasonVerificationFailed = "verification_failed"
	ReasonInvalidSubject     = "invalid_subject"
	ReasonPanic              = "panic"
)

// Claims is the verified identity extracted from a credential.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verifier checks a credential's signature and validity window against the
// credential source's public keys.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// Outcome describes one Authorize call for metrics.
type Outcome struct {
	Effect   Effect
	Reason   string
	Duration time.Duration
}

// ScopeFunc maps the requested resource to the resource an Allow grants.
type ScopeFunc func(methodARN string) string

type Option func(*Authorizer)

// WithLogger sets the logger used for deny diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Authorizer) { a.log = log }
}

// WithObserver registers fn to be called after every decision.
func WithObserver(fn func(Outcome)) Option {
	return func(a *Authorizer) { a.observe = fn }
}

// WithScope widens the resource written into Allow decisions. Deny decisions
// always name the requested resource.
func WithScope(fn ScopeFunc) Option {
	return func(a *Authorizer) { a.scope = fn }
}

// Authorizer produces access decisions from bearer credentials.
type Authorizer struct {
	verifier Verifier
	log      zerolog.Logger
	observe  func(Outcome)
	scope    ScopeFunc
}

func New(verifier Verifier, opts ...Option) *Authorizer {
	a := &Authorizer{verifier: verifier, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authorize decides whether req may invoke its resource.
func (a *Authorizer) Authorize(ctx context.Context, req Request) (d Decision) {
	start := time.Now()
	reason := ReasonVerificationFailed

	defer func() {
		if r := recover(); r != nil {
			a.log.Error().
				Interface("panic", r).
				Str("resource", req.MethodARN).
				Msg("authorizer panic, denying")
			d = DenyResource(req.MethodARN)
			reason = ReasonPanic
		}
		if d.Allowed() {
			reason = ""
		}
		if a.observe != nil {
			a.observe(Outcome{Effect: d.Effect(), Reason: reason, Duration: time.Since(start)})
		}
	}()

	token, err := ExtractBearer(req.AuthorizationToken)
	if err != nil {
		reason = ReasonMalformedToken
		if errors.Is(err, ErrMissingToken) {
			reason = ReasonMissingToken
		}
		a.log.Debug().Err(err).Str("resource", req.MethodARN).Msg("denied")
		return DenyResource(req.MethodARN)
	}

	if a.verifier == nil {
		a.log.Error().Str("resource", req.MethodARN).Msg("no verifier configured, denying")
		return DenyResource(req.MethodARN)
	}

	claims, err := a.verifier.Verify(ctx, token)
	if err != nil {
		a.log.Warn().Err(err).Str("resource", req.MethodARN).Msg("token verification failed")
		return DenyResource(req.MethodARN)
	}

	resource := req.MethodARN
	if a.scope != nil {
		resource = a.scope(req.MethodARN)
	}
	d, err = AllowSubject(claims.Subject, resource)
	if err != nil {
		reason = ReasonInvalidSubject
		a.log.Warn().Err(err).Str("resource", req.MethodARN).Msg("verified token has no subject")
		return DenyResource(req.MethodARN)
	}
	return d.WithExpiry(claims.ExpiresAt)
}

// ExtractBearer returns the credential from an Authorization header value.
// The value must be exactly "Bearer <token>": two space separated parts with
// a case-sensitive scheme.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrMalformedToken
	}
	return parts[1], nil
}

// PrefixScope grants every resource under the API prefix of the requested
// method ARN, i.e. everything before the first "/" followed by "/*".
func PrefixScope(methodARN string) string {
	if i := strings.Index(methodARN, "/"); i >= 0 {
		return methodARN[:i] + "/*"
	}
	return methodARN
}
