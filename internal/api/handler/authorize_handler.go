package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/apptracker/application-tracker/internal/authorizer"
)

// Authorizer decides whether a request may invoke a resource.
type Authorizer interface {
	Authorize(ctx context.Context, req authorizer.Request) authorizer.Decision
}

// AuthorizeHandler exposes the authorizer invocation contract so an external
// gateway can call it over HTTP.
type AuthorizeHandler struct {
	authz Authorizer
}

func NewAuthorizeHandler(authz Authorizer) *AuthorizeHandler {
	return &AuthorizeHandler{authz: authz}
}

// Authorize handles POST /authorize. Deny is a normal response, never an
// error status.
//
// @Summary      Evaluate a token authorizer request
// @Tags         authorizer
// @Accept       json
// @Produce      json
// @Param        body  body      authorizer.Request  true  "Authorizer request"
// @Success      200   {object}  authorizer.Response
// @Failure      400   {object}  errorResponse
// @Router       /authorize [post]
func (h *AuthorizeHandler) Authorize(c echo.Context) error {
	var req authorizer.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	d := h.authz.Authorize(c.Request().Context(), req)
	return c.JSON(http.StatusOK, d.Policy())
}
