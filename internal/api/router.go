package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/nearhelp/sos-engine/docs"
	"github.com/nearhelp/sos-engine/internal/api/handler"
	"github.com/nearhelp/sos-engine/internal/api/middleware"
	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
	"github.com/nearhelp/sos-engine/internal/infrastructure/realtime"
)

// Deps is everything the HTTP surface needs. Services are built by the caller.
type Deps struct {
	Logger         zerolog.Logger
	JWTSecret      string
	AllowedOrigins []string

	Auth      ports.AuthService
	Incidents ports.IncidentService
	Chat      ports.ChatService
	ChatQueue ports.ChatQueue
	Guidance  ports.GuidanceService
	Admin     ports.AdminService

	// Accounts, when set, lets the admin group check the stored role instead
	// of trusting the token claim.
	Accounts middleware.AccountLookup

	Hub           *realtime.Hub
	ClientOptions realtime.ClientOptions
	Health        []handler.DependencyCheck
	TriggerLimit  *middleware.RateLimiter

	// MetricsRegisterer receives the HTTP metrics. Nil means the default
	// registry.
	MetricsRegisterer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: d.MetricsRegisterer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/v1/ws"
		},
	}))

	// --- Operational endpoints (no auth required) ---
	health := handler.NewHealthHandler(connections(d.Hub), d.Health...)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Authenticated API ---
	// Only the websocket upgrade accepts ?token=; everything else needs the
	// Authorization header.
	v1 := e.Group("/v1")
	secured := v1.Group("", middleware.Auth(d.JWTSecret))

	incidents := handler.NewIncidentHandler(d.Incidents, d.Chat, d.Guidance)
	trigger := []echo.MiddlewareFunc{}
	if d.TriggerLimit != nil {
		trigger = append(trigger, d.TriggerLimit.Middleware())
	}
	secured.POST("/incidents", incidents.Trigger, trigger...)
	secured.GET("/incidents", incidents.ListActive)
	secured.GET("/incidents/nearby", incidents.Nearby)
	secured.GET("/incidents/:id", incidents.Get)
	secured.POST("/incidents/:id/respond", incidents.Respond)
	secured.PATCH("/incidents/:id/status", incidents.UpdateStatus)
	secured.POST("/incidents/:id/resolve", incidents.Resolve)
	secured.GET("/incidents/:id/messages", incidents.Messages)
	secured.POST("/incidents/:id/messages", incidents.PostMessage)
	secured.GET("/incidents/:id/guidance", incidents.Guidance)
	secured.PATCH("/users/me/location", incidents.UpdateLocation)

	if d.Hub != nil {
		ws := handler.NewWSHandler(d.Hub, d.ChatQueue, d.AllowedOrigins, d.ClientOptions, d.Logger)
		v1.GET("/ws", ws.Connect, middleware.Auth(d.JWTSecret, middleware.AllowQueryToken()))
	}

	// --- Administration ---
	adminHandler := handler.NewAdminHandler(d.Admin)
	admin := secured.Group("/admin", middleware.RequireRole(d.Accounts, domain.RoleAdmin))
	admin.GET("/incidents", adminHandler.ListIncidents)
	admin.PATCH("/incidents/:id/flag", adminHandler.FlagFalseAlert)
	admin.GET("/users", adminHandler.ListUsers)
	admin.PATCH("/users/:id/suspend", adminHandler.Suspend)
	admin.PATCH("/users/:id/unsuspend", adminHandler.Unsuspend)
	admin.GET("/stats", adminHandler.Stats)

	return e
}

func connections(hub *realtime.Hub) func() int {
	if hub == nil {
		return nil
	}
	return hub.Connections
}

// requestLogger writes one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			// The path only: query strings may carry credentials.
			evt.Str("method", v.Method).
				Str("path", v.URIPath).
				Str("route", c.Path()).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
