package authorizer

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
)

// UnauthorizedPrincipal is the principal id carried by every Deny decision.
const UnauthorizedPrincipal = "unauthorized"

// ContextUserID is the decision context key holding the verified subject.
// Downstream handlers read the caller identity from this key only.
const ContextUserID = "User-Id"

// ErrEmptySubject is returned when an Allow decision is requested without a subject.
var ErrEmptySubject = errors.New("allow decision requires a subject")

// Effect is the outcome of an access decision. The zero value is Deny.
type Effect int

const (
	Deny Effect = iota
	Allow
)

func (e Effect) String() string {
	if e == Allow {
		return "Allow"
	}
	return "Deny"
}

// MarshalText renders the effect the way policy documents spell it.
func (e Effect) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText accepts "Allow" and "Deny".
func (e *Effect) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Allow":
		*e = Allow
	case "Deny":
		*e = Deny
	default:
		return fmt.Errorf("unknown effect %q", string(b))
	}
	return nil
}

// Decision is an immutable access decision for one request. A zero Decision
// denies everything; an allowing one can only be built through AllowSubject.
type Decision struct {
	effect    Effect
	principal string
	resource  string
	context   map[string]string
	expiresAt time.Time
}

// AllowSubject builds an Allow decision for subject on resource.
func AllowSubject(subject, resource string) (Decision, error) {
	if strings.TrimSpace(subject) == "" {
		return Decision{}, ErrEmptySubject
	}
	return Decision{
		effect:    Allow,
		principal: subject,
		resource:  resource,
		context:   map[string]string{ContextUserID: subject},
	}, nil
}

// WithExpiry returns a copy of d that stops allowing at t, the expiry of the
// credential it was made from. A zero t never expires.
func (d Decision) WithExpiry(t time.Time) Decision {
	d.expiresAt = t
	return d
}

// ExpiresAt is zero when the decision has no expiry.
func (d Decision) ExpiresAt() time.Time { return d.expiresAt }

// Expired reports whether the credential behind an Allow has expired at now.
func (d Decision) Expired(now time.Time) bool {
	return !d.expiresAt.IsZero() && !now.Before(d.expiresAt)
}

// DenyResource builds a Deny decision on resource.
func DenyResource(resource string) Decision {
	return Decision{effect: Deny, resource: resource}
}

func (d Decision) Effect() Effect { return d.effect }

func (d Decision) Allowed() bool { return d.effect == Allow }

func (d Decision) Resource() string { return d.resource }

// PrincipalID returns the subject for Allow and UnauthorizedPrincipal for Deny.
func (d Decision) PrincipalID() string {
	if d.effect != Allow {
		return UnauthorizedPrincipal
	}
	return d.principal
}

// Context returns a copy of the decision context. Deny decisions carry none.
func (d Decision) Context() map[string]string {
	if d.effect != Allow {
		return map[string]string{}
	}
	return maps.Clone(d.context)
}

// UserID returns the ContextUserID value, empty for Deny.
func (d Decision) UserID() string {
	if d.effect != Allow {
		return ""
	}
	return d.context[ContextUserID]
}

// Covers reports whether the decision grants access to resource. A resource
// ending in "*" covers every resource sharing its prefix.
func (d Decision) Covers(resource string) bool {
	if d.effect != Allow {
		return false
	}
	if prefix, ok := strings.CutSuffix(d.resource, "*"); ok {
		return strings.HasPrefix(resource, prefix)
	}
	return d.resource == resource
}
