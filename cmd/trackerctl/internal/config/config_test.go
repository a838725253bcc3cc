package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_PrefixedVariables(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"TRACKER_SERVER":  "https://api.example",
		"TRACKER_ISSUER":  "https://id.example",
		"TRACKER_SCOPES":  "openid,offline_access",
		"TRACKER_TIMEOUT": "5s",
		"SERVER":          "ignored",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "https://api.example" || cfg.Issuer != "https://id.example" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Scopes) != 2 || cfg.Timeout != 5*time.Second || cfg.ClientID != "trackerctl" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no config")
	}
	cfg := &Config{ServerURL: "x"}
	if got := MustFromContext(InjectConfig(context.Background(), cfg)); got != cfg {
		t.Fatalf("expected injected config")
	}
}
