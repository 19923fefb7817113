package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/core/ports"
	"github.com/nearhelp/sos-engine/internal/infrastructure/realtime"
	"github.com/nearhelp/sos-engine/pkg/logger"
)

// WSHandler upgrades authenticated requests to realtime connections on the
// hub.
type WSHandler struct {
	hub      *realtime.Hub
	chat     ports.ChatQueue
	opts     realtime.ClientOptions
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(hub *realtime.Hub, chat ports.ChatQueue, allowedOrigins []string, opts realtime.ClientOptions, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:  hub,
		chat: chat,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      originChecker(allowedOrigins),
		},
		log: logger.Component(log, "ws"),
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients), any origin when "*" is listed, and exact matches otherwise.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Connect handles GET /v1/ws.
//
// @Summary      Open the realtime channel
// @Description  Upgrades to a websocket. Pass the JWT as ?token= when headers cannot be set. Frames are {"event": "...", "data": {...}}.
// @Tags         realtime
// @Security     BearerAuth
// @Param        token  query  string  false  "JWT"
// @Success      101
// @Failure      401  {object}  errorResponse
// @Router       /v1/ws [get]
func (h *WSHandler) Connect(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the failure response.
		h.log.Debug().Err(err).Str("user_id", id.UserID).Msg("upgrade failed")
		return nil
	}

	client := realtime.NewClient(h.hub, h.chat, id.UserID, id.Name, h.opts, h.log)
	if !h.hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return nil
	}

	h.log.Debug().Str("user_id", id.UserID).Str("conn_id", client.ID()).Msg("realtime connection opened")
	go client.WritePump(conn)
	client.ReadPump(conn)
	return nil
}
