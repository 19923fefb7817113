package ports

import (
	"context"
	"time"

	"github.com/nearhelp/sos-engine/internal/core/domain"
)

// IncidentCountFilter selects incidents for aggregate counts. Zero values
// mean "no filter".
type IncidentCountFilter struct {
	Status       domain.IncidentStatus
	CreatedSince time.Time
}

// IncidentRepository is the incident store. Every mutating method is a single
// conditional update so concurrent writers cannot interleave a check and a write.
type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	FindByID(ctx context.Context, id string) (*domain.Incident, error)
	ListActive(ctx context.Context) ([]*domain.Incident, error)
	ListAll(ctx context.Context) ([]*domain.Incident, error)

	// AddResponder appends r when the incident is active and r.UserID is not
	// already listed. It returns ErrIncidentNotFound, ErrIncidentResolved or
	// ErrAlreadyResponding when the condition does not hold.
	AddResponder(ctx context.Context, incidentID string, r domain.Responder) error

	// SetResponderProgress returns ErrResponderNotFound when userID is not
	// listed and ErrIncidentResolved when the incident is closed.
	SetResponderProgress(ctx context.Context, incidentID, userID string, p domain.Progress) error

	// MarkResolved flips an active incident to resolved.
	MarkResolved(ctx context.Context, incidentID string, at time.Time) error

	// MarkFlagged records the false alert flag once; a second call returns
	// ErrAlreadyFlagged.
	MarkFlagged(ctx context.Context, incidentID string) error

	Count(ctx context.Context, filter IncidentCountFilter) (int64, error)
}

// MessageRepository is the durable side of the coordination log.
type MessageRepository interface {
	// Append stores m at the end of the incident's log. Write order defines
	// log order.
	Append(ctx context.Context, incidentID string, m domain.Message) error
	History(ctx context.Context, incidentID string) ([]domain.Message, error)
}

// ProximityIndex answers radius-bounded queries over last known locations.
// Results are ordered nearest first.
type ProximityIndex interface {
	// NearbyUsers excludes suspended users, users without a recorded
	// location, and excludeID when non-empty.
	NearbyUsers(ctx context.Context, p domain.Point, radiusMeters float64, excludeID string) ([]domain.NearbyUser, error)
	// NearbyIncidents returns active incidents only.
	NearbyIncidents(ctx context.Context, p domain.Point, radiusMeters float64) ([]domain.NearbyIncident, error)
	// UpdateUserLocation replaces the user's last known location.
	UpdateUserLocation(ctx context.Context, userID string, p domain.Point) error
}

// Transactor runs fn so that every store write made with the passed context
// commits or aborts together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RoomPublisher is the write side of the realtime fan-out hub. Both methods
// are fire-and-forget.
type RoomPublisher interface {
	Publish(room string, ev domain.Event)
	Broadcast(ev domain.Event)
}
