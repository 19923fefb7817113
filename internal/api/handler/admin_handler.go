package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nearhelp/sos-engine/internal/core/ports"
)

// AdminHandler serves the administrative surface. Routes are mounted behind
// RequireRole(admin).
type AdminHandler struct {
	admin ports.AdminService
}

func NewAdminHandler(admin ports.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListIncidents handles GET /v1/admin/incidents.
//
// @Summary      List all incidents, newest first
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Incident
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/incidents [get]
func (h *AdminHandler) ListIncidents(c echo.Context) error {
	list, err := h.admin.ListIncidents(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// ListUsers handles GET /v1/admin/users.
//
// @Summary      List all users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	list, err := h.admin.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Suspend handles PATCH /v1/admin/users/:id/suspend.
//
// @Summary      Suspend a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id}/suspend [patch]
func (h *AdminHandler) Suspend(c echo.Context) error {
	u, err := h.admin.Suspend(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// Unsuspend handles PATCH /v1/admin/users/:id/unsuspend.
//
// @Summary      Lift a suspension and reset the false alert count
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id}/unsuspend [patch]
func (h *AdminHandler) Unsuspend(c echo.Context) error {
	u, err := h.admin.Unsuspend(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// FlagFalseAlert handles PATCH /v1/admin/incidents/:id/flag.
//
// @Summary      Flag an incident as a false alert
// @Description  Penalises the triggerer. An incident can be flagged once.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Incident id"
// @Success      200  {object}  flagResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/admin/incidents/{id}/flag [patch]
func (h *AdminHandler) FlagFalseAlert(c echo.Context) error {
	incidentID := c.Param("id")
	u, err := h.admin.FlagFalseAlert(c.Request().Context(), incidentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, flagResponse{IncidentID: incidentID, Triggerer: u})
}

// Stats handles GET /v1/admin/stats.
//
// @Summary      Incident and user counters
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.IncidentStats
// @Router       /v1/admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	st, err := h.admin.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}
