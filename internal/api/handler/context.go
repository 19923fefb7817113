package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nearhelp/sos-engine/internal/api/middleware"
)

type identity struct {
	UserID string
	Name   string
	Role   string
}

// ctxIdentity extracts the claims injected by the Auth middleware. A missing
// user id means the middleware did not run; reject with 401.
func ctxIdentity(c echo.Context) (identity, error) {
	id := identity{}
	id.UserID, _ = c.Get(middleware.CtxUserID).(string)
	id.Name, _ = c.Get(middleware.CtxName).(string)
	id.Role, _ = c.Get(middleware.CtxRole).(string)
	if id.UserID == "" {
		return identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

// bindValid binds the request body into req and validates it.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
