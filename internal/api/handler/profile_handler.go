package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/apptracker/application-tracker/internal/core/domain"
	"github.com/apptracker/application-tracker/internal/core/ports"
)

type ProfileHandler struct {
	service ports.ProfileService
}

func NewProfileHandler(service ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Get handles GET /profiles.
//
// @Summary      Get the caller's profile
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  tracker.Profile
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /profiles [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	p, err := h.service.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(p))
}

// Save handles POST /profiles.
//
// @Summary      Replace the caller's profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      profileRequest  true  "Profile"
// @Success      200   {object}  tracker.Profile
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /profiles [post]
func (h *ProfileHandler) Save(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	if c.Request().ContentLength == 0 {
		return domain.ErrEmptyBody
	}

	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	saved, err := h.service.SaveProfile(c.Request().Context(), ports.ProfileInput{
		UserID:    userID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(saved))
}
