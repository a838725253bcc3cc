package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/apptracker/application-tracker/internal/api/metrics"
	"github.com/apptracker/application-tracker/internal/core/ports"
	"github.com/apptracker/application-tracker/pkg/tracker"
)

// ApplicationHandler handles HTTP requests for application records.
type ApplicationHandler struct {
	service ports.ApplicationService
}

func NewApplicationHandler(service ports.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// List handles GET /applications.
//
// @Summary      List applications, or fetch one
// @Tags         applications
// @Produce      json
// @Security     BearerAuth
// @Param        Application-Id  query     string  false  "Return only this application"
// @Success      200             {array}   tracker.Application
// @Failure      400             {object}  errorResponse
// @Failure      401             {object}  errorResponse
// @Failure      404             {object}  errorResponse
// @Router       /applications [get]
func (h *ApplicationHandler) List(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	results, err := h.service.ListApplications(c.Request().Context(), userID, applicationIDParam(c))
	if err != nil {
		return err
	}

	apps := make([]tracker.Application, 0, len(results))
	for _, r := range results {
		apps = append(apps, toApplicationResponse(r))
	}
	return c.JSON(http.StatusOK, apps)
}

// Save handles POST /applications. It replaces the application named by the
// Application-Id header, or creates one when the header is absent.
//
// @Summary      Create or replace an application
// @Tags         applications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Application-Id   header    string                  false  "Application to replace"
// @Param        Idempotency-Key  header    string                  false  "Collapses retried creates into one record"
// @Param        body             body      saveApplicationRequest  true   "Application"
// @Success      200              {object}  tracker.Application
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /applications [post]
func (h *ApplicationHandler) Save(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req saveApplicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	id := c.Request().Header.Get(headerApplicationID)
	key := c.Request().Header.Get(headerIdempotencyKey)
	res, err := h.service.SaveApplication(c.Request().Context(), toSaveInput(userID, id, key, req))
	if err != nil {
		return err
	}

	switch {
	case res.Replayed:
		metrics.ApplicationsSavedTotal.WithLabelValues("replay").Inc()
		metrics.IdempotencyTotal.WithLabelValues("hit").Inc()
	case res.Created:
		metrics.ApplicationsSavedTotal.WithLabelValues("create").Inc()
		if key != "" {
			metrics.IdempotencyTotal.WithLabelValues("miss").Inc()
		}
	default:
		metrics.ApplicationsSavedTotal.WithLabelValues("update").Inc()
	}

	return c.JSON(http.StatusOK, toApplicationResponse(res.Application))
}

// Delete handles DELETE /applications.
//
// @Summary      Delete an application
// @Tags         applications
// @Produce      json
// @Security     BearerAuth
// @Param        Application-Id  query     string  true  "Application to delete"
// @Success      200             {object}  tracker.Application
// @Failure      400             {object}  errorResponse
// @Failure      401             {object}  errorResponse
// @Failure      404             {object}  errorResponse
// @Router       /applications [delete]
func (h *ApplicationHandler) Delete(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	deleted, err := h.service.DeleteApplication(c.Request().Context(), userID, applicationIDParam(c))
	if err != nil {
		return err
	}
	metrics.ApplicationsDeletedTotal.Inc()
	return c.JSON(http.StatusOK, toApplicationResponse(*deleted))
}
