package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type contextKey string

const configKey contextKey = "trackerctl-config"

// Config holds shared configuration for all trackerctl commands. Values come
// from TRACKER_* environment variables; root command flags override them.
type Config struct {
	ServerURL string `env:"SERVER, default=http://localhost:8080"`

	// Issuer enables OpenID discovery of the token endpoint. When empty,
	// TokenURL must be set.
	Issuer       string   `env:"ISSUER"`
	TokenURL     string   `env:"TOKEN_URL"`
	ClientID     string   `env:"CLIENT_ID, default=trackerctl"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	Scopes       []string `env:"SCOPES"`
	// UseIDToken sends the id_token rather than the access token.
	UseIDToken bool `env:"USE_ID_TOKEN, default=false"`

	// ConfigDir holds credentials.json. Defaults to ~/.tracker.
	ConfigDir string        `env:"CONFIG_DIR"`
	LogLevel  string        `env:"LOG_LEVEL, default=warn"`
	Timeout   time.Duration `env:"TIMEOUT,   default=30s"`
}

// Load reads TRACKER_* variables.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper("TRACKER_", l),
	})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// InjectConfig adds config to the cobra command context.
func InjectConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from the cobra command context.
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configKey).(*Config)
	return cfg, ok
}

// MustFromContext retrieves config from context or panics. Only use it in
// RunE functions, after the root command has injected the config.
func MustFromContext(ctx context.Context) *Config {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("trackerctl: config not found in context")
	}
	return cfg
}
