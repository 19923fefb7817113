package handler

import (
	"errors"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nearhelp/sos-engine/internal/api/middleware"
)

// newTestContext builds a JSON request context. userID, when non-empty, is
// injected the way the Auth middleware would.
func newTestContext(method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set(middleware.CtxUserID, userID)
		c.Set(middleware.CtxName, "name "+userID)
		c.Set(middleware.CtxRole, "user")
	}
	return c, rec
}

// httpCode returns the status of an *echo.HTTPError, or 0.
func httpCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}
