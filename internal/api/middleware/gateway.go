package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/apptracker/application-tracker/internal/api/metrics"
	"github.com/apptracker/application-tracker/internal/authorizer"
)

// ContextUserID is the echo.Context key holding the authorized principal.
const ContextUserID = "user_id"

// Authorizer decides whether a request may invoke a resource.
type Authorizer interface {
	Authorize(ctx context.Context, req authorizer.Request) authorizer.Decision
}

type GatewayConfig struct {
	Authorizer Authorizer
	// ResourcePrefix is joined with "/METHOD/path" to form the method ARN.
	ResourcePrefix string
	// Cache may be nil to authorize every request.
	Cache *DecisionCache
	Log   zerolog.Logger
}

// Gateway runs every request through the authorizer the way an API gateway
// runs a token authorizer: Deny ends in 401, an Allow whose policy does not
// cover the requested method ARN ends in 403, and an Allow that covers it
// passes the principal to the handler under ContextUserID.
func Gateway(cfg GatewayConfig) echo.MiddlewareFunc {
	prefix := strings.TrimSuffix(cfg.ResourcePrefix, "/")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			header := req.Header.Get(echo.HeaderAuthorization)
			arn := MethodARN(prefix, req.Method, req.URL.Path)

			d, cached := authorizer.Decision{}, false
			if cfg.Cache != nil {
				d, cached = cfg.Cache.Get(header)
			}
			if cached {
				metrics.GatewayCacheTotal.WithLabelValues("hit").Inc()
			} else {
				if cfg.Cache != nil {
					metrics.GatewayCacheTotal.WithLabelValues("miss").Inc()
				}
				d = cfg.Authorizer.Authorize(req.Context(), authorizer.Request{
					Type:               authorizer.TokenRequestType,
					AuthorizationToken: header,
					MethodARN:          arn,
				})
			}

			if !d.Allowed() {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			if !cached && cfg.Cache != nil {
				cfg.Cache.Add(header, d)
			}
			if !d.Covers(arn) {
				cfg.Log.Debug().
					Str("user_id", d.UserID()).
					Str("resource", arn).
					Str("granted", d.Resource()).
					Msg("policy does not cover resource")
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}

			c.Set(ContextUserID, d.UserID())
			return next(c)
		}
	}
}

// MethodARN builds the resource identifier for one request.
func MethodARN(prefix, method, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return prefix + "/" + strings.ToUpper(method) + path
}
