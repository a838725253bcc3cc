package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRefreshSkew is how long before expiry a credential is refreshed.
const DefaultRefreshSkew = time.Minute

type Option func(*Manager)

func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithStore persists the credential on every transition.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

func WithRefreshSkew(d time.Duration) Option {
	return func(m *Manager) { m.skew = d }
}

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager holds the session of one principal.
//
// Sign-in and refresh are serialized by mu; at most one exchange with the
// credential source is in flight. Every commit checks the generation it
// started under, so a sign-in or refresh that finishes after Clear is dropped.
type Manager struct {
	source CredentialSource
	store  Store
	log    zerolog.Logger
	now    func() time.Time
	skew   time.Duration

	mu sync.Mutex

	stateMu     sync.RWMutex
	state       Session
	generation  uint64
	subscribers map[*subscriber]struct{}
}

func NewManager(source CredentialSource, opts ...Option) *Manager {
	m := &Manager{
		source:      source,
		log:         zerolog.Nop(),
		now:         time.Now,
		skew:        DefaultRefreshSkew,
		subscribers: make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore loads a persisted credential, if any, and signs in with it. Expired
// credentials are still restored; the next CurrentBearerToken refreshes them.
func (m *Manager) Restore() error {
	if m.store == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if cred == nil || cred.Token == "" {
		return nil
	}
	m.commit(m.currentGeneration(), Session{Credential: cred, Authenticated: true})
	return nil
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Session {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// Acquire signs in with creds. On failure the error is an *AuthFailure and
// only LastError changes: a principal who was already signed in stays signed
// in with the credential they had.
func (m *Manager) Acquire(ctx context.Context, creds SubjectCredentials) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gen := m.currentGeneration()
	cred, err := m.source.Exchange(ctx, creds)
	if err != nil {
		var af *AuthFailure
		if !errors.As(err, &af) {
			af = &AuthFailure{Reason: Unknown, Message: err.Error(), Cause: err}
		}
		m.log.Warn().
			Str("reason", string(af.Reason)).
			Str("code", af.Code).
			Str("detail", af.Message).
			Msg("sign-in failed")
		m.failSignIn(gen, af)
		return m.Snapshot(), af
	}
	if cred == nil || cred.Token == "" {
		af := &AuthFailure{Reason: Unknown, Message: "credential source returned no token"}
		m.failSignIn(gen, af)
		return m.Snapshot(), af
	}

	if !m.commit(gen, Session{Credential: cred, Authenticated: true}) {
		return m.Snapshot(), ErrCleared
	}
	m.log.Info().Str("subject", cred.Subject).Time("expires_at", cred.ExpiresAt).Msg("signed in")
	return m.Snapshot(), nil
}

// CurrentBearerToken returns the token to send with the next request,
// refreshing it first when it is expired or about to expire. ok is false when
// signed out or when the refresh failed.
func (m *Manager) CurrentBearerToken(ctx context.Context) (string, bool) {
	snap := m.Snapshot()
	if !snap.Authenticated || snap.Credential == nil {
		return "", false
	}
	if !snap.Credential.refreshDue(m.now(), m.skew) {
		return snap.Credential.Token, true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have refreshed or cleared while we waited.
	gen := m.currentGeneration()
	snap = m.Snapshot()
	if !snap.Authenticated || snap.Credential == nil {
		return "", false
	}
	if !snap.Credential.refreshDue(m.now(), m.skew) {
		return snap.Credential.Token, true
	}

	next, err := m.source.Refresh(ctx, snap.Credential)
	if err != nil {
		if IsReason(err, InvalidCredentials) {
			m.log.Warn().Err(err).Msg("credential source invalidated the session")
			m.commit(gen, Session{LastError: err})
			return "", false
		}
		m.log.Warn().Err(err).Msg("credential refresh failed")
		m.commit(gen, Session{Credential: snap.Credential, Authenticated: true, LastError: err})
		return "", false
	}
	if next == nil || next.Token == "" {
		m.commit(gen, Session{Credential: snap.Credential, Authenticated: true, LastError: errors.New("refresh returned no token")})
		return "", false
	}

	if !m.commit(gen, Session{Credential: next, Authenticated: true}) {
		return "", false
	}
	m.log.Debug().Str("subject", next.Subject).Time("expires_at", next.ExpiresAt).Msg("credential refreshed")
	return next.Token, true
}

// Clear signs out. It does not wait for an in-flight sign-in or refresh;
// their results are discarded.
func (m *Manager) Clear() {
	m.stateMu.Lock()
	m.generation++
	m.state = Session{}
	m.broadcastLocked()
	m.persistLocked()
	m.stateMu.Unlock()

	m.log.Info().Msg("signed out")
}

// Subscribe registers fn for every transition. fn first receives the
// current snapshot, then each later one in order, on a dedicated goroutine.
func (m *Manager) Subscribe(fn func(Session)) *Subscription {
	sub := newSubscriber(fn)

	m.stateMu.Lock()
	m.subscribers[sub] = struct{}{}
	sub.publish(m.state)
	m.stateMu.Unlock()

	go sub.run()

	return &Subscription{cancel: func() {
		m.stateMu.Lock()
		delete(m.subscribers, sub)
		m.stateMu.Unlock()
		sub.stop()
	}}
}

// ObserveAuthState yields the current session and then every transition
// until ctx is done or the consumer stops ranging. Each range starts a fresh
// subscription.
func (m *Manager) ObserveAuthState(ctx context.Context) iter.Seq[Session] {
	return func(yield func(Session) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch := make(chan Session)
		sub := m.Subscribe(func(s Session) {
			select {
			case ch <- s:
			case <-ctx.Done():
			}
		})
		defer sub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case s := <-ch:
				if !yield(s) {
					return
				}
			}
		}
	}
}

// failSignIn records af without touching the current credential.
func (m *Manager) failSignIn(gen uint64, af *AuthFailure) {
	prev := m.Snapshot()
	m.commit(gen, Session{Credential: prev.Credential, Authenticated: prev.Authenticated, LastError: af})
}

func (m *Manager) currentGeneration() uint64 {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.generation
}

// commit installs next unless Clear ran after gen was read. It reports
// whether next was installed.
func (m *Manager) commit(gen uint64, next Session) bool {
	m.stateMu.Lock()
	if m.generation != gen {
		m.stateMu.Unlock()
		return false
	}
	m.state = next
	m.broadcastLocked()
	m.persistLocked()
	m.stateMu.Unlock()
	return true
}

func (m *Manager) broadcastLocked() {
	for sub := range m.subscribers {
		sub.publish(m.state)
	}
}

// persistLocked writes the current state to the store. Holding stateMu keeps
// the stored credential in step with the in-memory one.
func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	var err error
	if m.state.Authenticated && m.state.Credential != nil {
		err = m.store.Save(m.state.Credential)
	} else {
		err = m.store.Delete()
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("persist credential")
	}
}
