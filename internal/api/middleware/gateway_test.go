package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/apptracker/application-tracker/internal/authorizer"
)

const testPrefix = "arn:aws:execute-api:local:000000000000:tracker/prod"

type stubVerifier struct {
	subject string
	err     error
	calls   int
}

func (v *stubVerifier) Verify(_ context.Context, _ string) (authorizer.Claims, error) {
	v.calls++
	if v.err != nil {
		return authorizer.Claims{}, v.err
	}
	return authorizer.Claims{Subject: v.subject}, nil
}

func serve(t *testing.T, mw echo.MiddlewareFunc, method, path, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var userID string
	handler := mw(func(c echo.Context) error {
		userID, _ = c.Get(ContextUserID).(string)
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, userID
}

func TestGateway_AllowSetsPrincipal(t *testing.T) {
	v := &stubVerifier{subject: "alice"}
	mw := Gateway(GatewayConfig{Authorizer: authorizer.New(v), ResourcePrefix: testPrefix})

	rec, userID := serve(t, mw, http.MethodGet, "/applications", "Bearer tok")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if userID != "alice" {
		t.Fatalf("expected principal alice, got %q", userID)
	}
}

func TestGateway_DenyIsUnauthorized(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Token tok",
		"lowercase":      "bearer tok",
		"extra part":     "Bearer tok extra",
		"bad token":      "Bearer tok",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			v := &stubVerifier{err: errors.New("bad signature")}
			mw := Gateway(GatewayConfig{Authorizer: authorizer.New(v), ResourcePrefix: testPrefix})

			rec, _ := serve(t, mw, http.MethodGet, "/applications", header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestGateway_CachesAllow(t *testing.T) {
	v := &stubVerifier{subject: "alice"}
	cache := NewDecisionCache(16, time.Minute)
	mw := Gateway(GatewayConfig{
		Authorizer:     authorizer.New(v, authorizer.WithScope(authorizer.PrefixScope)),
		ResourcePrefix: testPrefix,
		Cache:          cache,
	})

	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		rec, _ := serve(t, mw, m, "/applications", "Bearer tok")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", m, rec.Code)
		}
	}
	if v.calls != 1 {
		t.Fatalf("expected one verification, got %d", v.calls)
	}
}

func TestGateway_CachedMethodScopeForbidsOtherRoutes(t *testing.T) {
	v := &stubVerifier{subject: "alice"}
	mw := Gateway(GatewayConfig{
		Authorizer:     authorizer.New(v),
		ResourcePrefix: testPrefix,
		Cache:          NewDecisionCache(16, time.Minute),
	})

	if rec, _ := serve(t, mw, http.MethodGet, "/applications", "Bearer tok"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec, _ := serve(t, mw, http.MethodDelete, "/applications", "Bearer tok"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 from cached narrow policy, got %d", rec.Code)
	}
}

func TestGateway_DenyNotCached(t *testing.T) {
	v := &stubVerifier{err: errors.New("expired")}
	cache := NewDecisionCache(16, time.Minute)
	mw := Gateway(GatewayConfig{Authorizer: authorizer.New(v), ResourcePrefix: testPrefix, Cache: cache})

	serve(t, mw, http.MethodGet, "/applications", "Bearer tok")
	serve(t, mw, http.MethodGet, "/applications", "Bearer tok")
	if v.calls != 2 || cache.Len() != 0 {
		t.Fatalf("expected no caching of deny: calls=%d len=%d", v.calls, cache.Len())
	}
}

func TestDecisionCache_PurgeUser(t *testing.T) {
	cache := NewDecisionCache(16, time.Minute)
	alice, _ := authorizer.AllowSubject("alice", testPrefix+"/*")
	bob, _ := authorizer.AllowSubject("bob", testPrefix+"/*")
	cache.Add("Bearer a1", alice)
	cache.Add("Bearer a2", alice)
	cache.Add("Bearer b1", bob)
	cache.Add("Bearer x", authorizer.DenyResource(testPrefix))

	if n := cache.PurgeUser("alice"); n != 2 {
		t.Fatalf("expected 2 purged, got %d", n)
	}
	if _, ok := cache.Get("Bearer b1"); !ok {
		t.Fatalf("bob's decision should survive")
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", cache.Len())
	}
}

func TestDecisionCache_Expires(t *testing.T) {
	cache := NewDecisionCache(16, 20*time.Millisecond)
	d, _ := authorizer.AllowSubject("alice", testPrefix+"/*")
	cache.Add("Bearer a1", d)
	time.Sleep(60 * time.Millisecond)
	if _, ok := cache.Get("Bearer a1"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestGateway_CachedAllowEndsWithCredential(t *testing.T) {
	secret := []byte("gateway-secret")
	v, err := authorizer.NewHMACVerifier(secret, authorizer.JWTConfig{})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	mw := Gateway(GatewayConfig{
		Authorizer:     authorizer.New(v, authorizer.WithScope(authorizer.PrefixScope)),
		ResourcePrefix: testPrefix,
		Cache:          NewDecisionCache(16, 5*time.Minute),
	})

	now := time.Now()
	exp := time.Unix(now.Add(2*time.Second).Unix(), 0)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if rec, userID := serve(t, mw, http.MethodGet, "/applications", "Bearer "+token); rec.Code != http.StatusOK || userID != "alice" {
		t.Fatalf("expected 200 for alice, got %d %q", rec.Code, userID)
	}

	time.Sleep(time.Until(exp) + 500*time.Millisecond)

	if rec, _ := serve(t, mw, http.MethodGet, "/applications", "Bearer "+token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 once the token expired, got %d", rec.Code)
	}
}

func TestDecisionCache_DropsExpiredCredential(t *testing.T) {
	cache := NewDecisionCache(16, time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	d, _ := authorizer.AllowSubject("alice", testPrefix+"/*")
	cache.Add("Bearer a1", d.WithExpiry(now.Add(time.Minute)))
	cache.Add("Bearer stale", d.WithExpiry(now.Add(-time.Second)))
	if cache.Len() != 1 {
		t.Fatalf("expired decision must not be cached, len=%d", cache.Len())
	}
	if _, ok := cache.Get("Bearer a1"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	now = now.Add(time.Minute)
	if _, ok := cache.Get("Bearer a1"); ok {
		t.Fatalf("expected miss at credential expiry")
	}
	if cache.Len() != 0 {
		t.Fatalf("expired entry should be removed, len=%d", cache.Len())
	}
}

func TestMethodARN(t *testing.T) {
	got := MethodARN(testPrefix, "get", "applications")
	if got != testPrefix+"/GET/applications" {
		t.Fatalf("unexpected arn %q", got)
	}
}
