package ports

import (
	"context"

	"github.com/nearhelp/sos-engine/internal/core/domain"
)

// TriggerInput carries a new alert.
type TriggerInput struct {
	CrisisType  string
	Origin      domain.Point
	Radius      int
	RequesterID string
}

// TriggerResult is the created incident plus who was notified.
type TriggerResult struct {
	Incident *domain.Incident
	Notified int
}

// IncidentService is the incident lifecycle manager.
type IncidentService interface {
	Trigger(ctx context.Context, in TriggerInput) (*TriggerResult, error)
	Respond(ctx context.Context, incidentID, responderID string, location domain.Point) (*domain.Responder, error)
	UpdateResponderStatus(ctx context.Context, incidentID, responderID, progress string) error
	Resolve(ctx context.Context, incidentID, requesterID string) error
	FlagFalseAlert(ctx context.Context, incidentID string) (*domain.User, error)

	Get(ctx context.Context, incidentID string) (*domain.Incident, error)
	ListActive(ctx context.Context) ([]*domain.Incident, error)
	Nearby(ctx context.Context, p domain.Point, radiusMeters float64) ([]domain.NearbyIncident, error)
	UpdateLocation(ctx context.Context, userID string, p domain.Point) error
}

// ReputationService is the reputation engine.
type ReputationService interface {
	Apply(ctx context.Context, userID string, ev domain.ReputationEvent) (*domain.User, error)
}

// ChatService is the coordination log.
type ChatService interface {
	Send(ctx context.Context, incidentID, senderName, text string) (*domain.Message, error)
	History(ctx context.Context, incidentID string) ([]domain.Message, error)
}

// AdminService backs the administrative surface.
type AdminService interface {
	ListIncidents(ctx context.Context) ([]*domain.Incident, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	Suspend(ctx context.Context, userID string) (*domain.User, error)
	Unsuspend(ctx context.Context, userID string) (*domain.User, error)
	FlagFalseAlert(ctx context.Context, incidentID string) (*domain.User, error)
	Stats(ctx context.Context) (*domain.IncidentStats, error)
}

// ChatRequest is an inbound chat-send waiting for the coordination log.
// OnError, when set, is called if the message could not be accepted.
type ChatRequest struct {
	IncidentID string
	SenderName string
	Text       string
	OnError    func(error)
}

// ChatQueue accepts chat requests for asynchronous processing. Submit reports
// false when the request was not queued.
type ChatQueue interface {
	Submit(req ChatRequest) bool
}
