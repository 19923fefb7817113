package handler

import (
	"time"

	"github.com/nearhelp/sos-engine/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

// Coordinates are pointers so that 0 is a valid latitude or longitude and
// only an absent field fails "required".
type pointRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

func (p pointRequest) toPoint() domain.Point {
	return domain.Point{Lat: *p.Lat, Lng: *p.Lng}
}

type triggerRequest struct {
	CrisisType string   `json:"crisis_type" validate:"required,crisis_type"`
	Lat        *float64 `json:"lat"         validate:"required,latitude"`
	Lng        *float64 `json:"lng"         validate:"required,longitude"`
	// Radius in meters: 500, 1000 or 2000. Omitted means 1000.
	Radius int `json:"radius" validate:"omitempty,alert_radius"`
}

type statusRequest struct {
	Progress string `json:"progress" validate:"required,progress"`
}

type messageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// --- Response types ---

type triggerResponse struct {
	Incident *domain.Incident `json:"incident"`
	Notified int              `json:"notified"`
}

type resolveResponse struct {
	IncidentID string                `json:"incident_id"`
	Status     domain.IncidentStatus `json:"status"`
}

// Guidance is the generated JSON document, or the raw text as a JSON string
// when the generator returned something else.
type guidanceResponse struct {
	Guidance any  `json:"guidance"`
	Cached   bool `json:"cached,omitempty"`
	Fallback bool `json:"fallback,omitempty"`
}

type flagResponse struct {
	IncidentID string       `json:"incident_id"`
	Triggerer  *domain.User `json:"triggerer"`
}

type messagesResponse struct {
	IncidentID string           `json:"incident_id"`
	Messages   []domain.Message `json:"messages"`
}

type nearbyResponse struct {
	Incidents []domain.NearbyIncident `json:"incidents"`
}

type messageResponse struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incident_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
	Persisted  bool      `json:"persisted"`
}
