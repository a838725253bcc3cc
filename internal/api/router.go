package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/apptracker/application-tracker/internal/api/handler"
	"github.com/apptracker/application-tracker/internal/api/middleware"
	"github.com/apptracker/application-tracker/internal/core/ports"
	mongostore "github.com/apptracker/application-tracker/internal/infrastructure/db/mongo"

	_ "github.com/apptracker/application-tracker/docs"
)

// Deps carries everything NewRouter wires into handlers.
type Deps struct {
	Log zerolog.Logger

	DB    *mongo.Database
	Redis *redis.Client

	Applications ports.ApplicationService
	Profiles     ports.ProfileService
	Sessions     ports.SessionService

	Authorizer     middleware.Authorizer
	ResourcePrefix string
	// DecisionCache may be nil to authorize every request.
	DecisionCache *middleware.DecisionCache

	CORSOrigins []string

	// Registry receives HTTP metrics and backs /metrics. Nil selects the
	// default Prometheus registry, which also holds the custom metrics.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: corsOrigins(d.CORSOrigins),
		AllowHeaders: []string{
			echo.HeaderAuthorization,
			echo.HeaderContentType,
			"Application-Id",
			"Idempotency-Key",
		},
	}))
	promCfg := echoprometheus.MiddlewareConfig{Subsystem: "tracker"}
	promHandler := echoprometheus.NewHandler()
	if d.Registry != nil {
		promCfg.Registerer = d.Registry
		promHandler = echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Registry})
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))

	// --- Operational endpoints (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.DB, mongostore.Collections(), d.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", promHandler)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Authorizer contract for an external gateway ---
	e.POST("/authorize", handler.NewAuthorizeHandler(d.Authorizer).Authorize)

	// --- Resource API, behind the gateway ---
	gw := middleware.Gateway(middleware.GatewayConfig{
		Authorizer:     d.Authorizer,
		ResourcePrefix: d.ResourcePrefix,
		Cache:          d.DecisionCache,
		Log:            d.Log,
	})

	apps := handler.NewApplicationHandler(d.Applications)
	e.GET("/applications", apps.List, gw)
	e.POST("/applications", apps.Save, gw)
	e.DELETE("/applications", apps.Delete, gw)

	profiles := handler.NewProfileHandler(d.Profiles)
	e.GET("/profiles", profiles.Get, gw)
	e.POST("/profiles", profiles.Save, gw)

	var purger handler.DecisionPurger
	if d.DecisionCache != nil {
		purger = d.DecisionCache
	}
	e.DELETE("/sessions", handler.NewSessionHandler(d.Sessions, purger, d.Log).RevokeAll, gw)

	return e
}

func corsOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// requestLogger logs one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			userID, _ := c.Get(middleware.ContextUserID).(string)
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("user_id", userID).
				Msg("request")
			return nil
		},
	})
}
