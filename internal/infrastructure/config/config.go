package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	// CORSOrigins is a comma-separated allow-list; empty allows any origin.
	CORSOrigins []string `env:"CORS_ORIGINS"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`

	Mongo MongoConfig
	Redis RedisConfig
	Auth  AuthConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=application_tracker"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Policy scopes for AuthConfig.PolicyScope.
const (
	PolicyScopeAPI    = "api"
	PolicyScopeMethod = "method"
)

// AuthConfig selects how bearer tokens are verified. The first configured of
// Discovery, JWKSURL and HS256Secret wins.
type AuthConfig struct {
	Issuer      string   `env:"AUTH_ISSUER"`
	Audiences   []string `env:"AUTH_AUDIENCE"`
	Discovery   bool     `env:"AUTH_DISCOVERY,    default=false"`
	JWKSURL     string   `env:"AUTH_JWKS_URL"`
	HS256Secret string   `env:"AUTH_HS256_SECRET"`
	Algorithms  []string `env:"AUTH_ALGORITHMS"`

	Leeway time.Duration `env:"AUTH_LEEWAY, default=30s"`

	ResourcePrefix   string        `env:"AUTH_RESOURCE_PREFIX,    default=arn:aws:execute-api:local:000000000000:tracker/prod"`
	PolicyScope      string        `env:"AUTH_POLICY_SCOPE,       default=api"`
	DecisionCacheTTL time.Duration `env:"AUTH_DECISION_CACHE_TTL, default=5m"`
	DecisionCacheMax int           `env:"AUTH_DECISION_CACHE_MAX, default=1024"`
	RevocationTTL    time.Duration `env:"AUTH_REVOCATION_TTL,     default=720h"`
}

// Validate reports configuration that cannot produce a working server.
func (c *Config) Validate() error {
	a := c.Auth
	if !a.Discovery && a.JWKSURL == "" && a.HS256Secret == "" {
		return fmt.Errorf("config: one of AUTH_DISCOVERY, AUTH_JWKS_URL or AUTH_HS256_SECRET is required")
	}
	if a.Discovery && a.Issuer == "" {
		return fmt.Errorf("config: AUTH_DISCOVERY requires AUTH_ISSUER")
	}
	switch strings.ToLower(a.PolicyScope) {
	case PolicyScopeAPI, PolicyScopeMethod:
	default:
		return fmt.Errorf("config: AUTH_POLICY_SCOPE must be %q or %q, got %q", PolicyScopeAPI, PolicyScopeMethod, a.PolicyScope)
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
