package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

const defaultGuidanceTTL = 24 * time.Hour

// GuidanceCache stores generated guidance per incident.
// Key format: guidance:<incident_id>
type GuidanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGuidanceCache creates a GuidanceCache wrapping the given Redis client.
// Entries expire after ttl, or after a day when ttl is not positive.
func NewGuidanceCache(client *redis.Client, ttl time.Duration) *GuidanceCache {
	if ttl <= 0 {
		ttl = defaultGuidanceTTL
	}
	return &GuidanceCache{client: client, ttl: ttl}
}

// Get returns the cached guidance for an incident, if any.
func (c *GuidanceCache) Get(ctx context.Context, incidentID string) (string, bool, error) {
	text, err := c.client.Get(ctx, guidanceKey(incidentID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.Unavailable("guidance cache get", err)
	}
	return text, true, nil
}

// SetOnce writes text only if no entry exists, so concurrent first requests
// converge on a single stored answer.
func (c *GuidanceCache) SetOnce(ctx context.Context, incidentID, text string) (bool, error) {
	ok, err := c.client.SetNX(ctx, guidanceKey(incidentID), text, c.ttl).Result()
	if err != nil {
		return false, domain.Unavailable("guidance cache set", err)
	}
	return ok, nil
}

func guidanceKey(incidentID string) string {
	return fmt.Sprintf("guidance:%s", incidentID)
}

var _ ports.GuidanceCache = (*GuidanceCache)(nil)
