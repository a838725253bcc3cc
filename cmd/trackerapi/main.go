// Command trackerapi serves the application tracker resource API behind a
// bearer-token authorizer.
//
//	@title						Application Tracker API
//	@version					1.0
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/apptracker/application-tracker/internal/api"
	"github.com/apptracker/application-tracker/internal/api/metrics"
	"github.com/apptracker/application-tracker/internal/api/middleware"
	"github.com/apptracker/application-tracker/internal/authorizer"
	"github.com/apptracker/application-tracker/internal/core/service"
	"github.com/apptracker/application-tracker/internal/infrastructure/config"
	mongostore "github.com/apptracker/application-tracker/internal/infrastructure/db/mongo"
	redisstore "github.com/apptracker/application-tracker/internal/infrastructure/db/redis"
	"github.com/apptracker/application-tracker/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trackerapi: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "trackerapi",
	})

	// --- Storage ---
	store, err := mongostore.Open(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "trackerapi",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(dctx)
	}()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: "trackerapi",
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	revocations := redisstore.NewRevocationStore(rdb, cfg.Auth.RevocationTTL)

	// --- Authorizer ---
	verifier, err := newVerifier(ctx, cfg.Auth)
	if err != nil {
		return err
	}
	verifier.WithRevocations(revocations)
	log.Info().Strs("algorithms", verifier.Algorithms()).Str("issuer", cfg.Auth.Issuer).Msg("token verifier ready")

	authz := authorizer.New(verifier,
		authorizer.WithLogger(logger.Component("authorizer")),
		authorizer.WithObserver(observeDecision),
		authorizer.WithScope(policyScope(cfg.Auth.PolicyScope)),
	)

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Log:            log,
		DB:             store.Database(),
		Redis:          rdb,
		Applications:   service.NewApplicationService(store.Applications, redisstore.NewIdempotencyStore(rdb, cfg.IdempotencyTTL), logger.Component("applications")),
		Profiles:       service.NewProfileService(store.Profiles, logger.Component("profiles")),
		Sessions:       service.NewSessionService(revocations, logger.Component("sessions")),
		Authorizer:     authz,
		ResourcePrefix: cfg.Auth.ResourcePrefix,
		DecisionCache:  decisionCache(cfg.Auth),
		CORSOrigins:    cfg.CORSOrigins,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newVerifier picks the first configured key source: OpenID discovery, a
// JWKS URL, then a shared HS256 secret.
func newVerifier(ctx context.Context, a config.AuthConfig) (*authorizer.JWTVerifier, error) {
	jc := authorizer.JWTConfig{
		Issuer:      a.Issuer,
		Audiences:   a.Audiences,
		AllowedAlgs: a.Algorithms,
		Leeway:      a.Leeway,
	}
	switch {
	case a.Discovery:
		return authorizer.NewDiscoveryVerifier(ctx, a.Issuer, jc)
	case a.JWKSURL != "":
		return authorizer.NewJWKSVerifier(ctx, a.JWKSURL, jc)
	default:
		return authorizer.NewHMACVerifier([]byte(a.HS256Secret), jc)
	}
}

func policyScope(scope string) authorizer.ScopeFunc {
	if strings.EqualFold(scope, config.PolicyScopeMethod) {
		return nil
	}
	return authorizer.PrefixScope
}

func decisionCache(a config.AuthConfig) *middleware.DecisionCache {
	if a.DecisionCacheTTL <= 0 {
		return nil
	}
	return middleware.NewDecisionCache(a.DecisionCacheMax, a.DecisionCacheTTL)
}

func observeDecision(o authorizer.Outcome) {
	metrics.AuthorizerDecisionsTotal.WithLabelValues(o.Effect.String(), o.Reason).Inc()
	metrics.AuthorizerDuration.WithLabelValues(o.Effect.String()).Observe(o.Duration.Seconds())
}
