package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

const defaultNearbyRadius = 5000

// IncidentHandler serves the incident lifecycle, the coordination log and
// guidance over HTTP.
type IncidentHandler struct {
	incidents ports.IncidentService
	chat      ports.ChatService
	guidance  ports.GuidanceService
}

func NewIncidentHandler(incidents ports.IncidentService, chat ports.ChatService, guidance ports.GuidanceService) *IncidentHandler {
	return &IncidentHandler{incidents: incidents, chat: chat, guidance: guidance}
}

// Trigger handles POST /v1/incidents.
//
// @Summary      Trigger an SOS alert
// @Description  Creates an active incident and notifies eligible users within the radius.
// @Tags         incidents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      triggerRequest  true  "Alert"
// @Success      201   {object}  triggerResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/incidents [post]
func (h *IncidentHandler) Trigger(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req triggerRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	res, err := h.incidents.Trigger(c.Request().Context(), ports.TriggerInput{
		CrisisType:  req.CrisisType,
		Origin:      domain.Point{Lat: *req.Lat, Lng: *req.Lng},
		Radius:      req.Radius,
		RequesterID: id.UserID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, triggerResponse{Incident: res.Incident, Notified: res.Notified})
}

// ListActive handles GET /v1/incidents.
//
// @Summary      List active incidents
// @Tags         incidents
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Incident
// @Router       /v1/incidents [get]
func (h *IncidentHandler) ListActive(c echo.Context) error {
	list, err := h.incidents.ListActive(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Nearby handles GET /v1/incidents/nearby?lat=&lng=&radius=.
//
// @Summary      Active incidents near a point, nearest first
// @Tags         incidents
// @Produce      json
// @Security     BearerAuth
// @Param        lat     query     number  true   "Latitude"
// @Param        lng     query     number  true   "Longitude"
// @Param        radius  query     number  false  "Radius in meters (default 5000)"
// @Success      200     {object}  nearbyResponse
// @Failure      400     {object}  errorResponse
// @Router       /v1/incidents/nearby [get]
func (h *IncidentHandler) Nearby(c echo.Context) error {
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if errLat != nil || errLng != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lng query parameters are required")
	}
	radius := float64(defaultNearbyRadius)
	if raw := c.QueryParam("radius"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "radius must be a number")
		}
		radius = r
	}

	list, err := h.incidents.Nearby(c.Request().Context(), domain.Point{Lat: lat, Lng: lng}, radius)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nearbyResponse{Incidents: list})
}

// Get handles GET /v1/incidents/:id.
//
// @Summary      Get an incident
// @Tags         incidents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Incident id"
// @Success      200  {object}  domain.Incident
// @Failure      404  {object}  errorResponse
// @Router       /v1/incidents/{id} [get]
func (h *IncidentHandler) Get(c echo.Context) error {
	incident, err := h.incidents.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, incident)
}

// Respond handles POST /v1/incidents/:id/respond.
//
// @Summary      Respond to an incident
// @Tags         incidents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true  "Incident id"
// @Param        body  body      pointRequest  true  "Responder's current location"
// @Success      201   {object}  domain.Responder
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/incidents/{id}/respond [post]
func (h *IncidentHandler) Respond(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req pointRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	r, err := h.incidents.Respond(c.Request().Context(), c.Param("id"), id.UserID, req.toPoint())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

// UpdateStatus handles PATCH /v1/incidents/:id/status.
//
// @Summary      Report responder progress
// @Tags         incidents
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string         true  "Incident id"
// @Param        body  body  statusRequest  true  "Progress"
// @Success      204
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/incidents/{id}/status [patch]
func (h *IncidentHandler) UpdateStatus(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	if err := h.incidents.UpdateResponderStatus(c.Request().Context(), c.Param("id"), id.UserID, req.Progress); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Resolve handles POST /v1/incidents/:id/resolve.
//
// @Summary      Resolve an incident (triggerer only)
// @Tags         incidents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Incident id"
// @Success      200  {object}  resolveResponse
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/incidents/{id}/resolve [post]
func (h *IncidentHandler) Resolve(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	incidentID := c.Param("id")
	if err := h.incidents.Resolve(c.Request().Context(), incidentID, id.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resolveResponse{IncidentID: incidentID, Status: domain.StatusResolved})
}

// Messages handles GET /v1/incidents/:id/messages.
//
// @Summary      Coordination log, oldest first
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Incident id"
// @Success      200  {object}  messagesResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/incidents/{id}/messages [get]
func (h *IncidentHandler) Messages(c echo.Context) error {
	incidentID := c.Param("id")
	msgs, err := h.chat.History(c.Request().Context(), incidentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messagesResponse{IncidentID: incidentID, Messages: msgs})
}

// PostMessage handles POST /v1/incidents/:id/messages.
//
// @Summary      Send a coordination message
// @Description  The message is delivered to the incident room even when storage is degraded; "persisted" reports whether it reached the log.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Incident id"
// @Param        body  body      messageRequest  true  "Message"
// @Success      201   {object}  messageResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/incidents/{id}/messages [post]
func (h *IncidentHandler) PostMessage(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req messageRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	m, err := h.chat.Send(c.Request().Context(), c.Param("id"), id.Name, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, messageResponse{
		ID:         m.ID,
		IncidentID: m.IncidentID,
		SenderName: m.SenderName,
		Text:       m.Text,
		SentAt:     m.SentAt,
		Persisted:  m.Persisted,
	})
}

// Guidance handles GET /v1/incidents/:id/guidance.
//
// @Summary      First-aid guidance for an incident
// @Tags         incidents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Incident id"
// @Success      200  {object}  guidanceResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/incidents/{id}/guidance [get]
func (h *IncidentHandler) Guidance(c echo.Context) error {
	res, err := h.guidance.ForIncident(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	resp := guidanceResponse{Guidance: res.Text, Cached: res.Cached, Fallback: res.Fallback}
	if json.Valid([]byte(res.Text)) {
		resp.Guidance = json.RawMessage(res.Text)
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateLocation handles PATCH /v1/users/me/location.
//
// @Summary      Report the caller's current location
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  pointRequest  true  "Location"
// @Success      204
// @Failure      422   {object}  errorResponse
// @Router       /v1/users/me/location [patch]
func (h *IncidentHandler) UpdateLocation(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req pointRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := h.incidents.UpdateLocation(c.Request().Context(), id.UserID, req.toPoint()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
