package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/api/metrics"
	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

// ReputationService applies scoring rules through the user store's atomic
// update. It never reads a score into memory to write it back.
type ReputationService struct {
	users  ports.UserRepository
	logger zerolog.Logger
}

func NewReputationService(users ports.UserRepository, logger zerolog.Logger) *ReputationService {
	return &ReputationService{users: users, logger: logger.With().Str("component", "reputation").Logger()}
}

func (s *ReputationService) Apply(ctx context.Context, userID string, ev domain.ReputationEvent) (*domain.User, error) {
	d := domain.DeltaFor(ev)
	u, err := s.users.ApplyReputation(ctx, userID, d)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", ev, err)
	}
	metrics.ReputationEventsTotal.WithLabelValues(string(ev)).Inc()

	s.logger.Debug().
		Str("user_id", userID).
		Str("event", string(ev)).
		Int("trust_score", u.TrustScore).
		Int("false_alert_count", u.FalseAlertCount).
		Bool("suspended", u.Suspended).
		Msg("reputation applied")
	return u, nil
}
