package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeSource struct {
	exchangeFn func(ctx context.Context, creds SubjectCredentials) (*Credential, error)
	refreshFn  func(ctx context.Context, current *Credential) (*Credential, error)
	refreshes  int32
}

func (f *fakeSource) Exchange(ctx context.Context, creds SubjectCredentials) (*Credential, error) {
	return f.exchangeFn(ctx, creds)
}

func (f *fakeSource) Refresh(ctx context.Context, current *Credential) (*Credential, error) {
	atomic.AddInt32(&f.refreshes, 1)
	return f.refreshFn(ctx, current)
}

type memStore struct {
	mu      sync.Mutex
	cred    *Credential
	deletes int
}

func (s *memStore) Load() (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred, nil
}

func (s *memStore) Save(c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = c
	return nil
}

func (s *memStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	s.deletes++
	return nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func credAt(token string, expires time.Time) *Credential {
	return &Credential{Token: token, Subject: "user-1", IssuedAt: t0, ExpiresAt: expires, RefreshToken: "refresh-" + token}
}

func signedIn(t *testing.T, src *fakeSource, opts ...Option) *Manager {
	t.Helper()
	if src.exchangeFn == nil {
		src.exchangeFn = func(context.Context, SubjectCredentials) (*Credential, error) {
			return credAt("tok-1", t0.Add(time.Hour)), nil
		}
	}
	m := NewManager(src, opts...)
	if _, err := m.Acquire(context.Background(), SubjectCredentials{Username: "a@example.com", Password: "pw"}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	return m
}

func collect(m *Manager) (<-chan Session, *Subscription) {
	ch := make(chan Session, 16)
	sub := m.Subscribe(func(s Session) { ch <- s })
	return ch, sub
}

func next(t *testing.T, ch <-chan Session) Session {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for session update")
		return Session{}
	}
}

func expectNone(t *testing.T, ch <-chan Session) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("unexpected session update %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

// ---------------------------------------------------------------------------
// Acquire
// ---------------------------------------------------------------------------

func TestAcquire_Success(t *testing.T) {
	src := &fakeSource{exchangeFn: func(_ context.Context, creds SubjectCredentials) (*Credential, error) {
		if creds.Username != "a@example.com" || creds.Password != "pw" {
			t.Fatalf("unexpected credentials %+v", creds)
		}
		return credAt("tok-1", t0.Add(time.Hour)), nil
	}}
	m := NewManager(src)
	updates, sub := collect(m)
	defer sub.Unsubscribe()

	if first := next(t, updates); first.Authenticated {
		t.Fatalf("expected initial snapshot to be signed out")
	}

	s, err := m.Acquire(context.Background(), SubjectCredentials{Username: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !s.Authenticated || s.Principal() != "user-1" || s.LastError != nil {
		t.Fatalf("unexpected session %+v", s)
	}
	if got := next(t, updates); !got.Authenticated || got.Credential.Token != "tok-1" {
		t.Fatalf("unexpected update %+v", got)
	}
}

func TestAcquire_FailureIsClassified(t *testing.T) {
	cases := []struct {
		err  error
		want Reason
	}{
		{Classify("auth/wrong-password", "bad password", nil), InvalidCredentials},
		{Classify("auth/user-not-found", "", nil), InvalidCredentials},
		{Classify("invalid_grant", "", nil), InvalidCredentials},
		{Classify("auth/too-many-requests", "", nil), RateLimited},
		{Classify("auth/network-request-failed", "", nil), Unknown},
		{errors.New("dial tcp: refused"), Unknown},
	}
	for _, tc := range cases {
		src := &fakeSource{exchangeFn: func(context.Context, SubjectCredentials) (*Credential, error) {
			return nil, tc.err
		}}
		m := NewManager(src)
		s, err := m.Acquire(context.Background(), SubjectCredentials{})

		var af *AuthFailure
		if !errors.As(err, &af) || af.Reason != tc.want {
			t.Fatalf("%v: expected reason %s, got %v", tc.err, tc.want, err)
		}
		if s.Authenticated || s.LastError == nil {
			t.Fatalf("%v: expected signed out session with last error, got %+v", tc.err, s)
		}
		if _, ok := m.CurrentBearerToken(context.Background()); ok {
			t.Fatalf("%v: expected no token", tc.err)
		}
	}
}

func TestAcquire_FailureKeepsExistingSession(t *testing.T) {
	store := &memStore{}
	src := &fakeSource{}
	m := signedIn(t, src, WithStore(store), WithClock((&fixedClock{now: t0}).Now))

	src.exchangeFn = func(context.Context, SubjectCredentials) (*Credential, error) {
		return nil, Classify("auth/wrong-password", "", nil)
	}
	s, err := m.Acquire(context.Background(), SubjectCredentials{Username: "a@example.com", Password: "typo"})
	if !IsReason(err, InvalidCredentials) {
		t.Fatalf("expected InvalidCredentials, got %v", err)
	}
	if !s.Authenticated || s.Credential.Token != "tok-1" || !IsReason(s.LastError, InvalidCredentials) {
		t.Fatalf("expected signed in session with last error, got %+v", s)
	}
	if tok, ok := m.CurrentBearerToken(context.Background()); !ok || tok != "tok-1" {
		t.Fatalf("expected previous token, got %q %v", tok, ok)
	}
	if cred, _ := store.Load(); cred == nil || cred.Token != "tok-1" || store.deletes != 0 {
		t.Fatalf("stored credential was dropped: %+v deletes=%d", cred, store.deletes)
	}
}

func TestAuthFailure_MessageHidesProviderDetail(t *testing.T) {
	af := Classify("auth/user-not-found", "There is no user record corresponding to this identifier.", nil)
	if af.Error() != "invalid credentials" {
		t.Fatalf("unexpected message %q", af.Error())
	}
}

// ---------------------------------------------------------------------------
// CurrentBearerToken
// ---------------------------------------------------------------------------

func TestCurrentBearerToken_FreshCredentialIsNotRefreshed(t *testing.T) {
	clock := &fixedClock{now: t0}
	src := &fakeSource{refreshFn: func(context.Context, *Credential) (*Credential, error) {
		t.Fatalf("refresh should not be called")
		return nil, nil
	}}
	m := signedIn(t, src, WithClock(clock.Now))

	tok, ok := m.CurrentBearerToken(context.Background())
	if !ok || tok != "tok-1" {
		t.Fatalf("expected tok-1, got %q %v", tok, ok)
	}
}

func TestCurrentBearerToken_RefreshesInsideSkewWindow(t *testing.T) {
	clock := &fixedClock{now: t0}
	src := &fakeSource{refreshFn: func(_ context.Context, current *Credential) (*Credential, error) {
		if current.RefreshToken != "refresh-tok-1" {
			t.Fatalf("unexpected refresh token %q", current.RefreshToken)
		}
		return credAt("tok-2", t0.Add(2*time.Hour)), nil
	}}
	m := signedIn(t, src, WithClock(clock.Now), WithRefreshSkew(time.Minute))
	updates, sub := collect(m)
	defer sub.Unsubscribe()
	next(t, updates)

	clock.Advance(59*time.Minute + 30*time.Second)

	tok, ok := m.CurrentBearerToken(context.Background())
	if !ok || tok != "tok-2" {
		t.Fatalf("expected tok-2, got %q %v", tok, ok)
	}
	if got := next(t, updates); got.Credential.Token != "tok-2" {
		t.Fatalf("expected subscribers to see the refreshed credential, got %+v", got)
	}
}

func TestCurrentBearerToken_RefreshErrorDegradesToAbsent(t *testing.T) {
	clock := &fixedClock{now: t0}
	boom := errors.New("token endpoint unavailable")
	src := &fakeSource{refreshFn: func(context.Context, *Credential) (*Credential, error) {
		return nil, boom
	}}
	m := signedIn(t, src, WithClock(clock.Now))
	clock.Advance(2 * time.Hour)

	if _, ok := m.CurrentBearerToken(context.Background()); ok {
		t.Fatalf("expected no token after failed refresh")
	}
	s := m.Snapshot()
	if !s.Authenticated || !errors.Is(s.LastError, boom) {
		t.Fatalf("expected session kept with last error, got %+v", s)
	}
}

func TestCurrentBearerToken_InvalidationResetsSession(t *testing.T) {
	clock := &fixedClock{now: t0}
	store := &memStore{}
	src := &fakeSource{refreshFn: func(context.Context, *Credential) (*Credential, error) {
		return nil, Classify("invalid_grant", "refresh token revoked", nil)
	}}
	m := signedIn(t, src, WithClock(clock.Now), WithStore(store))
	clock.Advance(2 * time.Hour)

	if _, ok := m.CurrentBearerToken(context.Background()); ok {
		t.Fatalf("expected no token")
	}
	s := m.Snapshot()
	if s.Authenticated || s.Credential != nil || !IsReason(s.LastError, InvalidCredentials) {
		t.Fatalf("expected signed out session, got %+v", s)
	}
	if c, _ := store.Load(); c != nil {
		t.Fatalf("expected stored credential to be removed")
	}
}

func TestCurrentBearerToken_ConcurrentCallersShareOneRefresh(t *testing.T) {
	clock := &fixedClock{now: t0}
	src := &fakeSource{refreshFn: func(context.Context, *Credential) (*Credential, error) {
		time.Sleep(20 * time.Millisecond)
		return credAt("tok-2", t0.Add(3*time.Hour)), nil
	}}
	m := signedIn(t, src, WithClock(clock.Now))
	clock.Advance(2 * time.Hour)

	var wg sync.WaitGroup
	tokens := make([]string, 10)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = m.CurrentBearerToken(context.Background())
		}(i)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&src.refreshes); n != 1 {
		t.Fatalf("expected a single refresh, got %d", n)
	}
	for i, tok := range tokens {
		if tok != "tok-2" {
			t.Fatalf("caller %d got %q", i, tok)
		}
	}
}

// ---------------------------------------------------------------------------
// Clear
// ---------------------------------------------------------------------------

func TestClear_RevokesUnexpiredToken(t *testing.T) {
	store := &memStore{}
	m := signedIn(t, &fakeSource{}, WithClock((&fixedClock{now: t0}).Now), WithStore(store))
	if c, _ := store.Load(); c == nil {
		t.Fatalf("expected credential to be stored after sign-in")
	}

	m.Clear()

	if _, ok := m.CurrentBearerToken(context.Background()); ok {
		t.Fatalf("expected no token after Clear")
	}
	if s := m.Snapshot(); s.Authenticated || s.Credential != nil {
		t.Fatalf("expected signed out session, got %+v", s)
	}
	if c, _ := store.Load(); c != nil {
		t.Fatalf("expected stored credential to be removed")
	}
}

func TestClear_DiscardsInFlightRefresh(t *testing.T) {
	clock := &fixedClock{now: t0}
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{refreshFn: func(context.Context, *Credential) (*Credential, error) {
		close(started)
		<-release
		return credAt("tok-2", t0.Add(3*time.Hour)), nil
	}}
	m := signedIn(t, src, WithClock(clock.Now))
	clock.Advance(2 * time.Hour)

	type result struct {
		tok string
		ok  bool
	}
	done := make(chan result, 1)
	go func() {
		tok, ok := m.CurrentBearerToken(context.Background())
		done <- result{tok, ok}
	}()

	<-started
	m.Clear()
	close(release)

	r := <-done
	if r.ok {
		t.Fatalf("refresh finished after Clear must not return a token, got %q", r.tok)
	}
	if m.Snapshot().Authenticated {
		t.Fatalf("refresh finished after Clear resurrected the session")
	}
	if _, ok := m.CurrentBearerToken(context.Background()); ok {
		t.Fatalf("expected no token after Clear")
	}
}

func TestClear_DiscardsInFlightAcquire(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{exchangeFn: func(context.Context, SubjectCredentials) (*Credential, error) {
		close(started)
		<-release
		return credAt("tok-1", t0.Add(time.Hour)), nil
	}}
	m := NewManager(src)

	errc := make(chan error, 1)
	go func() {
		_, err := m.Acquire(context.Background(), SubjectCredentials{})
		errc <- err
	}()

	<-started
	m.Clear()
	close(release)

	if err := <-errc; !errors.Is(err, ErrCleared) {
		t.Fatalf("expected ErrCleared, got %v", err)
	}
	if m.Snapshot().Authenticated {
		t.Fatalf("expected signed out session")
	}
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

func TestSubscribe_OrderedDeliveryAndUnsubscribe(t *testing.T) {
	m := NewManager(&fakeSource{exchangeFn: func(context.Context, SubjectCredentials) (*Credential, error) {
		return credAt("tok-1", t0.Add(time.Hour)), nil
	}})
	updates, sub := collect(m)

	if next(t, updates).Authenticated {
		t.Fatalf("expected signed out snapshot first")
	}
	if _, err := m.Acquire(context.Background(), SubjectCredentials{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	m.Clear()

	if !next(t, updates).Authenticated {
		t.Fatalf("expected sign-in transition second")
	}
	if next(t, updates).Authenticated {
		t.Fatalf("expected sign-out transition third")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	if _, err := m.Acquire(context.Background(), SubjectCredentials{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	expectNone(t, updates)
}

func TestSubscribe_SlowListenerDoesNotBlockTransitions(t *testing.T) {
	m := NewManager(&fakeSource{exchangeFn: func(context.Context, SubjectCredentials) (*Credential, error) {
		return credAt("tok-1", t0.Add(time.Hour)), nil
	}})
	block := make(chan struct{})
	sub := m.Subscribe(func(Session) { <-block })
	defer sub.Unsubscribe()
	defer close(block)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			_, _ = m.Acquire(context.Background(), SubjectCredentials{})
			m.Clear()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("transitions blocked on a slow listener")
	}
}

func TestObserveAuthState_IsRestartable(t *testing.T) {
	m := NewManager(&fakeSource{exchangeFn: func(context.Context, SubjectCredentials) (*Credential, error) {
		return credAt("tok-1", t0.Add(time.Hour)), nil
	}})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	seq := m.ObserveAuthState(ctx)

	got := make(chan Session, 4)
	go func() {
		for s := range seq {
			got <- s
			if s.Authenticated {
				return
			}
		}
	}()

	if next(t, got).Authenticated {
		t.Fatalf("expected current snapshot first")
	}
	if _, err := m.Acquire(context.Background(), SubjectCredentials{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !next(t, got).Authenticated {
		t.Fatalf("expected sign-in transition")
	}

	// A second range starts from the current snapshot.
	for s := range seq {
		if !s.Authenticated || s.Principal() != "user-1" {
			t.Fatalf("expected restarted stream to begin signed in, got %+v", s)
		}
		break
	}
}

func TestObserveAuthState_StopsWhenContextDone(t *testing.T) {
	m := NewManager(&fakeSource{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan int)
	go func() {
		n := 0
		for range m.ObserveAuthState(ctx) {
			n++
		}
		done <- n
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case n := <-done:
		if n != 1 {
			t.Fatalf("expected one snapshot before cancellation, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not stop after cancellation")
	}
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func TestRestore_LoadsStoredCredential(t *testing.T) {
	store := &memStore{cred: credAt("stored", t0.Add(time.Hour))}
	m := NewManager(&fakeSource{}, WithStore(store), WithClock((&fixedClock{now: t0}).Now))

	if err := m.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	tok, ok := m.CurrentBearerToken(context.Background())
	if !ok || tok != "stored" {
		t.Fatalf("expected stored token, got %q %v", tok, ok)
	}
}

func TestRestore_NoStoredCredential(t *testing.T) {
	m := NewManager(&fakeSource{}, WithStore(&memStore{}))
	if err := m.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if m.Snapshot().Authenticated {
		t.Fatalf("expected signed out session")
	}
}

func TestCredential_Expired(t *testing.T) {
	c := credAt("x", t0)
	if !c.Expired(t0) || c.Expired(t0.Add(-time.Second)) {
		t.Fatalf("unexpected expiry evaluation")
	}
	if (&Credential{}).Expired(t0) {
		t.Fatalf("credential without expiry must not expire")
	}
}
