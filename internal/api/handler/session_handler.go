package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/apptracker/application-tracker/internal/api/metrics"
	"github.com/apptracker/application-tracker/internal/core/ports"
)

// DecisionPurger drops cached access decisions for a principal.
type DecisionPurger interface {
	PurgeUser(userID string) int
}

type SessionHandler struct {
	service ports.SessionService
	cache   DecisionPurger
	log     zerolog.Logger
}

// NewSessionHandler returns a SessionHandler. cache may be nil.
func NewSessionHandler(service ports.SessionService, cache DecisionPurger, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{service: service, cache: cache, log: log}
}

// RevokeAll handles DELETE /sessions. It rejects every credential issued to
// the caller so far, including the one used for this request.
//
// @Summary      Sign out everywhere
// @Tags         sessions
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /sessions [delete]
func (h *SessionHandler) RevokeAll(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	if err := h.service.RevokeSessions(c.Request().Context(), userID); err != nil {
		return err
	}
	if h.cache != nil {
		n := h.cache.PurgeUser(userID)
		h.log.Debug().Str("user_id", userID).Int("purged", n).Msg("cached decisions purged")
	}
	metrics.SessionsRevokedTotal.Inc()
	return c.NoContent(http.StatusNoContent)
}
