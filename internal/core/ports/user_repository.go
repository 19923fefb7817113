package ports

import (
	"context"

	"github.com/nearhelp/sos-engine/internal/core/domain"
)

// UserRepository persists accounts and their operational fields.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)

	// ApplyReputation applies d to the user in one atomic update and returns
	// the updated user. Implementations must not read-modify-write.
	ApplyReputation(ctx context.Context, userID string, d domain.ReputationDelta) (*domain.User, error)
	SetSuspended(ctx context.Context, userID string, suspended bool) (*domain.User, error)

	Count(ctx context.Context, suspendedOnly bool) (int64, error)
}
