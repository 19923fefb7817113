package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

// AdminService backs the administrative endpoints. Callers are expected to
// have verified the admin role already.
type AdminService struct {
	incidents  ports.IncidentRepository
	users      ports.UserRepository
	lifecycle  ports.IncidentService
	reputation ports.ReputationService
	logger     zerolog.Logger
	now        func() time.Time
}

func NewAdminService(
	incidents ports.IncidentRepository,
	users ports.UserRepository,
	lifecycle ports.IncidentService,
	reputation ports.ReputationService,
	logger zerolog.Logger,
) *AdminService {
	return &AdminService{
		incidents:  incidents,
		users:      users,
		lifecycle:  lifecycle,
		reputation: reputation,
		logger:     logger.With().Str("component", "admin").Logger(),
		now:        time.Now,
	}
}

func (s *AdminService) ListIncidents(ctx context.Context) ([]*domain.Incident, error) {
	return s.incidents.ListAll(ctx)
}

func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// Suspend blocks a user from triggering and responding. Admin accounts
// cannot be suspended.
func (s *AdminService) Suspend(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("suspend: %w", err)
	}
	if u.IsAdmin() {
		return nil, domain.ErrCannotSuspendAdmin
	}

	u, err = s.users.SetSuspended(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("suspend: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Msg("user suspended")
	return u, nil
}

// Unsuspend lifts a suspension and resets the false alert counter.
func (s *AdminService) Unsuspend(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.reputation.Apply(ctx, userID, domain.RepAdminUnsuspend)
	if err != nil {
		return nil, fmt.Errorf("unsuspend: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Msg("user unsuspended")
	return u, nil
}

func (s *AdminService) FlagFalseAlert(ctx context.Context, incidentID string) (*domain.User, error) {
	return s.lifecycle.FlagFalseAlert(ctx, incidentID)
}

// Stats runs the dashboard counts concurrently.
func (s *AdminService) Stats(ctx context.Context) (*domain.IncidentStats, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var st domain.IncidentStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalIncidents, err = s.incidents.Count(ctx, ports.IncidentCountFilter{})
		return err
	})
	g.Go(func() (err error) {
		st.ActiveIncidents, err = s.incidents.Count(ctx, ports.IncidentCountFilter{Status: domain.StatusActive})
		return err
	})
	g.Go(func() (err error) {
		st.ResolvedIncidents, err = s.incidents.Count(ctx, ports.IncidentCountFilter{Status: domain.StatusResolved})
		return err
	})
	g.Go(func() (err error) {
		st.TodayIncidents, err = s.incidents.Count(ctx, ports.IncidentCountFilter{CreatedSince: startOfDay})
		return err
	})
	g.Go(func() (err error) {
		st.TotalUsers, err = s.users.Count(ctx, false)
		return err
	})
	g.Go(func() (err error) {
		st.SuspendedUsers, err = s.users.Count(ctx, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}
