package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nearhelp/sos-engine/internal/core/domain"
)

// AccountLookup loads the stored account behind a token subject.
type AccountLookup interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// RequireRole admits only requests whose role is one of roles.
//
// With a nil lookup the token's role claim decides. Otherwise the account is
// reloaded so that a revoked role or a suspension takes effect before the
// token expires.
func RequireRole(accounts AccountLookup, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)

			if accounts != nil {
				id, _ := c.Get(CtxUserID).(string)
				u, err := accounts.FindByID(c.Request().Context(), id)
				switch {
				case errors.Is(err, domain.ErrNotFound):
					return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
				case err != nil:
					return err
				case u.Suspended:
					return domain.ErrAccountSuspended
				}
				role = u.Role
				c.Set(CtxRole, role)
			}

			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "admins only")
			}
			return next(c)
		}
	}
}
