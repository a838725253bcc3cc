package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/apptracker/application-tracker/internal/api/middleware"
)

// ctxUserID extracts the principal injected by the Gateway middleware. An
// empty value means the route was mounted without the gateway.
func ctxUserID(c echo.Context) (string, error) {
	userID, _ := c.Get(middleware.ContextUserID).(string)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return userID, nil
}

// applicationIDParam reads the application id from the Application-Id query
// parameter (either case) and falls back to the header of the same name.
func applicationIDParam(c echo.Context) string {
	for _, name := range []string{headerApplicationID, strings.ToLower(headerApplicationID)} {
		if v := strings.TrimSpace(c.QueryParam(name)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(c.Request().Header.Get(headerApplicationID))
}
