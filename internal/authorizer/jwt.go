package authorizer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token has no subject")
	ErrRevoked        = errors.New("token revoked")
)

// RevocationChecker reports whether credentials issued to subject at
// issuedAt have been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, subject string, issuedAt time.Time) (bool, error)
}

// JWTConfig controls claim validation. Issuer and Audiences are checked only
// when set.
type JWTConfig struct {
	Issuer      string
	Audiences   []string
	AllowedAlgs []string
	Leeway      time.Duration
}

// JWTVerifier validates signed JWT bearer credentials.
type JWTVerifier struct {
	cfg         JWTConfig
	keyfunc     jwt.Keyfunc
	revocations RevocationChecker
}

// NewHMACVerifier verifies HS256 credentials signed with a shared secret.
func NewHMACVerifier(secret []byte, cfg JWTConfig) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("hmac secret required")
	}
	cfg.AllowedAlgs = []string{jwt.SigningMethodHS256.Alg()}
	return &JWTVerifier{cfg: cfg, keyfunc: func(*jwt.Token) (any, error) {
		return secret, nil
	}}, nil
}

// NewJWKSVerifier verifies asymmetric credentials against the keys published
// at jwksURL. Keys are refreshed in the background until ctx is cancelled.
func NewJWKSVerifier(ctx context.Context, jwksURL string, cfg JWTConfig) (*JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url required")
	}
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{"RS256"}
	}
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("jwks init: %w", err)
	}
	return &JWTVerifier{cfg: cfg, keyfunc: kf.Keyfunc}, nil
}

// NewDiscoveryVerifier resolves the issuer's jwks_uri through OpenID
// discovery and verifies against it. The issuer is always enforced.
func NewDiscoveryVerifier(ctx context.Context, issuer string, cfg JWTConfig) (*JWTVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	var meta struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("oidc metadata: %w", err)
	}
	cfg.Issuer = issuer
	return NewJWKSVerifier(ctx, meta.JWKSURI, cfg)
}

// WithRevocations makes Verify consult r after a signature check succeeds.
// Errors from r reject the credential.
func (v *JWTVerifier) WithRevocations(r RevocationChecker) *JWTVerifier {
	v.revocations = r
	return v
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.cfg.Leeway),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	var rc jwt.RegisteredClaims
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, &rc, v.keyfunc)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if len(v.cfg.Audiences) > 0 && !audienceIntersects(rc.Audience, v.cfg.Audiences) {
		return Claims{}, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	if rc.Subject == "" {
		return Claims{}, ErrMissingSubject
	}

	claims := Claims{Subject: rc.Subject}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}

	if v.revocations != nil {
		revoked, err := v.revocations.IsRevoked(ctx, claims.Subject, claims.IssuedAt)
		if err != nil {
			return Claims{}, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return Claims{}, ErrRevoked
		}
	}
	return claims, nil
}

// Algorithms returns the signing algorithms the verifier accepts.
func (v *JWTVerifier) Algorithms() []string {
	return slices.Clone(v.cfg.AllowedAlgs)
}

func audienceIntersects(got jwt.ClaimStrings, wants []string) bool {
	for _, aud := range got {
		if slices.Contains(wants, aud) {
			return true
		}
	}
	return false
}

var _ Verifier = (*JWTVerifier)(nil)
