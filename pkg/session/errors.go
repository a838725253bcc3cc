package session

import (
	"errors"
	"strings"
)

// Reason is the closed set of acquisition failure categories.
type Reason string

const (
	InvalidCredentials Reason = "invalid_credentials"
	RateLimited        Reason = "rate_limited"
	Unknown            Reason = "unknown"
)

// ErrCleared is returned by Acquire when the session was cleared while the
// exchange was in flight.
var ErrCleared = errors.New("session cleared during sign-in")

// AuthFailure is returned when the credential source rejects a sign-in or a
// refresh. Code and Message are the provider's and are meant for logs only.
type AuthFailure struct {
	Reason  Reason
	Code    string
	Message string
	Cause   error
}

func (f *AuthFailure) Error() string {
	switch f.Reason {
	case InvalidCredentials:
		return "invalid credentials"
	case RateLimited:
		return "too many attempts, try again later"
	default:
		return "sign-in failed"
	}
}

func (f *AuthFailure) Unwrap() error { return f.Cause }

// IsReason reports whether err is an AuthFailure with the given reason.
func IsReason(err error, r Reason) bool {
	var af *AuthFailure
	return errors.As(err, &af) && af.Reason == r
}

var invalidCredentialCodes = map[string]struct{}{
	"invalid_grant":              {},
	"invalid_client":             {},
	"unauthorized_client":        {},
	"access_denied":              {},
	"auth/user-not-found":        {},
	"auth/wrong-password":        {},
	"auth/invalid-credential":    {},
	"auth/invalid-email":         {},
	"auth/user-disabled":         {},
	"auth/user-token-expired":    {},
	"auth/invalid-user-token":    {},
	"auth/requires-recent-login": {},
}

var rateLimitedCodes = map[string]struct{}{
	"slow_down":              {},
	"too_many_requests":      {},
	"auth/too-many-requests": {},
}

// Classify maps a provider error code to an AuthFailure. Unmapped codes are
// Unknown.
func Classify(code, message string, cause error) *AuthFailure {
	normalized := strings.ToLower(strings.TrimSpace(code))
	reason := Unknown
	if _, ok := invalidCredentialCodes[normalized]; ok {
		reason = InvalidCredentials
	} else if _, ok := rateLimitedCodes[normalized]; ok {
		reason = RateLimited
	}
	return &AuthFailure{Reason: reason, Code: code, Message: message, Cause: cause}
}
