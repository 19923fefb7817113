package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

// GuidanceService serves crisis guidance per incident from a write-once
// cache, falling back to static advice when the generator fails. Cache
// errors never fail the request.
type GuidanceService struct {
	incidents ports.IncidentRepository
	cache     ports.GuidanceCache
	generator ports.GuidanceGenerator
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewGuidanceService(
	incidents ports.IncidentRepository,
	cache ports.GuidanceCache,
	generator ports.GuidanceGenerator,
	timeout time.Duration,
	logger zerolog.Logger,
) *GuidanceService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GuidanceService{
		incidents: incidents,
		cache:     cache,
		generator: generator,
		timeout:   timeout,
		logger:    logger.With().Str("component", "guidance").Logger(),
	}
}

func (s *GuidanceService) ForIncident(ctx context.Context, incidentID string) (*ports.GuidanceResult, error) {
	incident, err := s.incidents.FindByID(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("guidance: %w", err)
	}

	text, ok, err := s.cache.Get(ctx, incidentID)
	if err != nil {
		s.logger.Warn().Err(err).Str("incident_id", incidentID).Msg("guidance cache read failed")
	} else if ok {
		return &ports.GuidanceResult{Text: text, Cached: true}, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err = s.generator.Generate(genCtx, incident.CrisisType)
	if err != nil {
		s.logger.Warn().Err(err).Str("incident_id", incidentID).Msg("guidance generator failed, serving fallback")
		return s.fallback(incident.CrisisType)
	}

	wrote, err := s.cache.SetOnce(ctx, incidentID, text)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("incident_id", incidentID).Msg("guidance cache write failed")
	case !wrote:
		// A concurrent request cached first; serve the stored text so every
		// participant sees the same advice.
		if cached, ok, err := s.cache.Get(ctx, incidentID); err == nil && ok {
			return &ports.GuidanceResult{Text: cached, Cached: true}, nil
		}
	}
	return &ports.GuidanceResult{Text: text}, nil
}

func (s *GuidanceService) fallback(ct domain.CrisisType) (*ports.GuidanceResult, error) {
	b, err := json.Marshal(domain.FallbackGuidance(ct))
	if err != nil {
		return nil, fmt.Errorf("guidance fallback: %w", err)
	}
	return &ports.GuidanceResult{Text: string(b), Fallback: true}, nil
}
