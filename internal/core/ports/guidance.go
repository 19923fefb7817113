package ports

import (
	"context"

	"github.com/nearhelp/sos-engine/internal/core/domain"
)

// GuidanceCache maps an incident id to opaque guidance text. Entries are
// written once.
type GuidanceCache interface {
	Get(ctx context.Context, incidentID string) (text string, ok bool, err error)
	// SetOnce stores text unless an entry already exists. It reports whether
	// this call wrote the entry.
	SetOnce(ctx context.Context, incidentID, text string) (bool, error)
}

// GuidanceGenerator is the external text generation service.
type GuidanceGenerator interface {
	Generate(ctx context.Context, crisisType domain.CrisisType) (string, error)
}

// GuidanceResult is what callers get back for an incident.
type GuidanceResult struct {
	Text     string
	Cached   bool
	Fallback bool
}

type GuidanceService interface {
	ForIncident(ctx context.Context, incidentID string) (*GuidanceResult, error)
}
