package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by Auth.
const (
	CtxUserID = "user_id"
	CtxName   = "name"
	CtxRole   = "role"
)

// AuthOption adjusts how Auth locates the token.
type AuthOption func(*authConfig)

type authConfig struct {
	queryToken bool
}

// AllowQueryToken also accepts the token from the "token" query parameter
// when no Authorization header is sent. Browsers cannot set headers on
// websocket upgrades; mount it on the upgrade route only.
func AllowQueryToken() AuthOption {
	return func(cfg *authConfig) { cfg.queryToken = true }
}

// Auth validates the JWT from the Authorization header and injects its claims
// into the context.
func Auth(jwtSecret string, opts ...AuthOption) echo.MiddlewareFunc {
	var cfg authConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c, cfg.queryToken)
			if err != nil {
				return err
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims.GetSubject()
			if sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing subject")
			}
			name, _ := claims["name"].(string)
			role, _ := claims["role"].(string)

			c.Set(CtxUserID, sub)
			c.Set(CtxName, name)
			c.Set(CtxRole, role)

			return next(c)
		}
	}
}

func bearerToken(c echo.Context, allowQuery bool) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if q := c.QueryParam("token"); allowQuery && q != "" {
			return q, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}
