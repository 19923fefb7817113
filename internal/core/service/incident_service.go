package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/api/metrics"
	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

const (
	defaultOpTimeout = 5 * time.Second
	maxNearbyRadius  = 50_000
)

// IncidentDeps groups the collaborators of the lifecycle manager.
type IncidentDeps struct {
	Incidents  ports.IncidentRepository
	Users      ports.UserRepository
	Proximity  ports.ProximityIndex
	Reputation ports.ReputationService
	Tx         ports.Transactor
	Publisher  ports.RoomPublisher
	// OpTimeout bounds the storage and proximity work of one operation.
	OpTimeout time.Duration
}

// IncidentService is the only writer of incident state. Operations on the
// same incident id are serialised in-process; the store's conditional updates
// keep the guards correct across replicas.
type IncidentService struct {
	IncidentDeps
	locks  *keyedMutex
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

func NewIncidentService(deps IncidentDeps, logger zerolog.Logger) *IncidentService {
	if deps.OpTimeout <= 0 {
		deps.OpTimeout = defaultOpTimeout
	}
	return &IncidentService{
		IncidentDeps: deps,
		locks:        newKeyedMutex(),
		logger:       logger.With().Str("component", "incidents").Logger(),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

// Trigger creates an active incident and notifies every eligible user within
// its radius. Nothing is stored unless the nearby lookup and the insert both
// succeed.
func (s *IncidentService) Trigger(ctx context.Context, in ports.TriggerInput) (*ports.TriggerResult, error) {
	crisis := domain.CrisisType(in.CrisisType)
	if !crisis.Valid() {
		return nil, domain.ErrInvalidCrisisType
	}
	radius := domain.AlertRadius(in.Radius)
	if in.Radius == 0 {
		radius = domain.DefaultRadius
	}
	if !radius.Valid() {
		return nil, domain.ErrInvalidRadius
	}
	if !in.Origin.Valid() {
		return nil, domain.ErrInvalidLocation
	}

	ctx, cancel := context.WithTimeout(ctx, s.OpTimeout)
	defer cancel()

	requester, err := s.activeUser(ctx, in.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}

	nearby, err := s.Proximity.NearbyUsers(ctx, in.Origin, float64(radius), requester.ID)
	if err != nil {
		return nil, fmt.Errorf("trigger: nearby users: %w", err)
	}

	incident := &domain.Incident{
		ID:              s.newID(),
		CrisisType:      crisis,
		Origin:          in.Origin,
		Radius:          radius,
		TriggeredBy:     requester.ID,
		TriggeredByName: requester.Name,
		Status:          domain.StatusActive,
		Responders:      []domain.Responder{},
		CreatedAt:       s.now(),
	}
	if err := s.Incidents.Create(ctx, incident); err != nil {
		s.logger.Error().Err(err).Str("requester", requester.ID).Msg("failed to create incident")
		return nil, fmt.Errorf("trigger: %w", err)
	}
	metrics.IncidentsTriggeredTotal.WithLabelValues(string(crisis)).Inc()

	summary := incident.Summary()
	for _, u := range nearby {
		s.Publisher.Publish(domain.PersonalRoom(u.ID), domain.IncidentNearby{
			Incident:       summary,
			DistanceMeters: u.DistanceMeters,
		})
	}

	s.logger.Info().
		Str("incident_id", incident.ID).
		Str("crisis_type", string(crisis)).
		Int("radius", int(radius)).
		Int("notified", len(nearby)).
		Msg("incident triggered")

	return &ports.TriggerResult{Incident: incident, Notified: len(nearby)}, nil
}

// Respond adds responderID to the incident, records their location and
// credits their trust score in one transaction.
func (s *IncidentService) Respond(ctx context.Context, incidentID, responderID string, location domain.Point) (*domain.Responder, error) {
	if !location.Valid() {
		return nil, domain.ErrInvalidLocation
	}

	ctx, cancel := context.WithTimeout(ctx, s.OpTimeout)
	defer cancel()

	responder, err := s.activeUser(ctx, responderID)
	if err != nil {
		return nil, fmt.Errorf("respond: %w", err)
	}

	unlock := s.locks.Lock(incidentID)
	defer unlock()

	incident, err := s.Incidents.FindByID(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("respond: %w", err)
	}
	entry, err := incident.AddResponder(responder.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("respond: %w", err)
	}

	var credited *domain.User
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Incidents.AddResponder(ctx, incidentID, entry); err != nil {
			return err
		}
		if err := s.Proximity.UpdateUserLocation(ctx, responder.ID, location); err != nil {
			return err
		}
		u, err := s.Reputation.Apply(ctx, responder.ID, domain.RepResponded)
		if err != nil {
			return err
		}
		credited = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("respond: %w", err)
	}
	metrics.RespondersJoinedTotal.Inc()

	s.Publisher.Publish(domain.IncidentRoom(incidentID), domain.ResponderJoined{
		IncidentID: incidentID,
		Responder:  credited.Profile(),
		Progress:   entry.Progress,
		JoinedAt:   entry.JoinedAt,
	})

	s.logger.Info().Str("incident_id", incidentID).Str("responder", responder.ID).Msg("responder joined")
	return &entry, nil
}

// UpdateResponderStatus sets the caller's progress on an active incident.
// Any progress value may follow any other.
func (s *IncidentService) UpdateResponderStatus(ctx context.Context, incidentID, responderID, progress string) error {
	p := domain.Progress(progress)
	if !p.Valid() {
		return domain.ErrInvalidProgress
	}

	ctx, cancel := context.WithTimeout(ctx, s.OpTimeout)
	defer cancel()

	unlock := s.locks.Lock(incidentID)
	defer unlock()

	if err := s.Incidents.SetResponderProgress(ctx, incidentID, responderID, p); err != nil {
		return fmt.Errorf("update responder status: %w", err)
	}

	s.Publisher.Publish(domain.IncidentRoom(incidentID), domain.ResponderStatusChanged{
		IncidentID:  incidentID,
		ResponderID: responderID,
		Progress:    p,
	})
	return nil
}

// Resolve closes the incident on behalf of its triggerer and credits them.
func (s *IncidentService) Resolve(ctx context.Context, incidentID, requesterID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.OpTimeout)
	defer cancel()

	unlock := s.locks.Lock(incidentID)
	defer unlock()

	incident, err := s.Incidents.FindByID(ctx, incidentID)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	at := s.now()
	if err := incident.Resolve(requesterID, at); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Incidents.MarkResolved(ctx, incidentID, at); err != nil {
			return err
		}
		_, err := s.Reputation.Apply(ctx, incident.TriggeredBy, domain.RepResolvedOwn)
		return err
	})
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	metrics.IncidentsResolvedTotal.Inc()

	// Every client that shows the incident must drop it, not only room members.
	s.Publisher.Broadcast(domain.IncidentResolved{IncidentID: incidentID})

	s.logger.Info().Str("incident_id", incidentID).Msg("incident resolved")
	return nil
}

// FlagFalseAlert penalises the incident's triggerer. Authorisation is the
// caller's responsibility.
func (s *IncidentService) FlagFalseAlert(ctx context.Context, incidentID string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.OpTimeout)
	defer cancel()

	unlock := s.locks.Lock(incidentID)
	defer unlock()

	incident, err := s.Incidents.FindByID(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("flag false alert: %w", err)
	}
	if incident.FlaggedFalse {
		return nil, fmt.Errorf("flag false alert: %w", domain.ErrAlreadyFlagged)
	}

	var penalised *domain.User
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Incidents.MarkFlagged(ctx, incidentID); err != nil {
			return err
		}
		u, err := s.Reputation.Apply(ctx, incident.TriggeredBy, domain.RepFalseAlert)
		if err != nil {
			return err
		}
		penalised = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("flag false alert: %w", err)
	}
	metrics.FalseAlertsTotal.Inc()

	evt := s.logger.Info()
	if penalised.Suspended {
		evt = s.logger.Warn()
	}
	evt.Str("incident_id", incidentID).
		Str("user_id", penalised.ID).
		Int("false_alert_count", penalised.FalseAlertCount).
		Bool("suspended", penalised.Suspended).
		Msg("false alert flagged")

	return penalised, nil
}

func (s *IncidentService) Get(ctx context.Context, incidentID string) (*domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, s.OpTimeout)
	defer cancel()
	return s.Incidents.FindByID(ctx, incidentID)
}

func (s *IncidentService) ListActive(ctx context.Context) ([]*domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, s.OpTimeout)
	defer cancel()
	return s.Incidents.ListActive(ctx)
}

// Nearby lists active incidents within radiusMeters of p, nearest first.
func (s *IncidentService) Nearby(ctx context.Context, p domain.Point, radiusMeters float64) ([]domain.NearbyIncident, error) {
	if !p.Valid() {
		return nil, domain.ErrInvalidLocation
	}
	if radiusMeters <= 0 || radiusMeters > maxNearbyRadius {
		return nil, domain.ErrInvalidRadius
	}

	ctx, cancel := context.WithTimeout(ctx, s.OpTimeout)
	defer cancel()
	return s.Proximity.NearbyIncidents(ctx, p, radiusMeters)
}

// UpdateLocation replaces the user's last known position.
func (s *IncidentService) UpdateLocation(ctx context.Context, userID string, p domain.Point) error {
	if !p.Valid() {
		return domain.ErrInvalidLocation
	}

	ctx, cancel := context.WithTimeout(ctx, s.OpTimeout)
	defer cancel()
	return s.Proximity.UpdateUserLocation(ctx, userID, p)
}

// activeUser loads a user and rejects suspended accounts.
func (s *IncidentService) activeUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Suspended {
		return nil, domain.ErrAccountSuspended
	}
	return u, nil
}
