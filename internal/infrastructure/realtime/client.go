package realtime

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nearhelp/sos-engine/internal/api/metrics"
	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

const (
	maxFrameBytes     = 8 << 10
	pongWait          = 60 * time.Second
	pingPeriod        = pongWait * 9 / 10
	defaultSendBuffer = 64
	defaultWriteWait  = 10 * time.Second
)

// ClientOptions tunes a single connection.
type ClientOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	ChatRate     rate.Limit
	ChatBurst    int
}

// Client is one authenticated live connection. Its room set and send buffer
// are owned by the Hub.
type Client struct {
	id       string
	userID   string
	userName string

	send  chan []byte
	rooms map[string]struct{}

	hub     *Hub
	chat    ports.ChatQueue
	limiter *rate.Limiter
	opts    ClientOptions
	log     zerolog.Logger
}

// NewClient builds a connection for the authenticated user. Register it with
// the hub before starting its pumps.
func NewClient(hub *Hub, chat ports.ChatQueue, userID, userName string, opts ClientOptions, log zerolog.Logger) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteWait
	}
	if opts.ChatRate <= 0 {
		opts.ChatRate = rate.Limit(5)
	}
	if opts.ChatBurst <= 0 {
		opts.ChatBurst = 10
	}
	id := uuid.NewString()
	return &Client{
		id:       id,
		userID:   userID,
		userName: userName,
		send:     make(chan []byte, opts.SendBuffer),
		rooms:    make(map[string]struct{}),
		hub:      hub,
		chat:     chat,
		limiter:  rate.NewLimiter(opts.ChatRate, opts.ChatBurst),
		opts:     opts,
		log:      log.With().Str("conn_id", id).Str("user_id", userID).Logger(),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// UserID returns the authenticated user behind the connection.
func (c *Client) UserID() string { return c.userID }

// Outbound exposes the send buffer for the write side.
func (c *Client) Outbound() <-chan []byte { return c.send }

// enqueue is called with the hub lock held, so send is never closed under it.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		metrics.HubDeliveriesDroppedTotal.Inc()
		c.log.Debug().Msg("send buffer full, frame dropped")
	}
}

// Handle applies one inbound frame from the peer.
func (c *Client) Handle(raw []byte) {
	ev, err := domain.DecodeClientEvent(raw)
	if err != nil {
		c.notify(err)
		return
	}

	switch e := ev.(type) {
	case *domain.JoinPersonalRoom:
		if e.UserID != "" && e.UserID != c.userID {
			c.notify(domain.ErrForbidden)
			return
		}
		c.hub.Join(c, domain.PersonalRoom(c.userID))
	case *domain.JoinIncidentRoom:
		if e.IncidentID == "" {
			c.notify(domain.ErrIncidentNotFound)
			return
		}
		c.hub.Join(c, domain.IncidentRoom(e.IncidentID))
	case *domain.LeaveIncidentRoom:
		c.hub.Leave(c, domain.IncidentRoom(e.IncidentID))
	case *domain.ChatSend:
		c.submitChat(e)
	}
}

func (c *Client) submitChat(e *domain.ChatSend) {
	if !c.limiter.Allow() {
		c.notify(errRateLimited)
		return
	}
	sender := c.userName
	if sender == "" {
		sender = e.SenderName
	}
	ok := c.chat.Submit(ports.ChatRequest{
		IncidentID: e.IncidentID,
		SenderName: sender,
		Text:       e.Text,
		OnError:    c.notifyAsync,
	})
	if !ok {
		c.notify(errChatBusy)
	}
}

var (
	errRateLimited = errors.New("too many messages, slow down")
	errChatBusy    = errors.New("chat is busy, try again")
)

// notify queues an error frame for this connection only.
func (c *Client) notify(err error) {
	frame, encErr := domain.EncodeEvent(domain.ErrorNotice{Message: err.Error()})
	if encErr != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, live := c.hub.clients[c]; live {
		c.enqueue(frame)
	}
}

// notifyAsync is invoked from dispatcher workers.
func (c *Client) notifyAsync(err error) { c.notify(err) }

// ReadPump reads frames until the peer disconnects, then unregisters the
// connection. It blocks and must run on its own goroutine.
func (c *Client) ReadPump(conn *websocket.Conn) {
	defer func() {
		c.hub.Unregister(c)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("connection closed unexpectedly")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		c.Handle(raw)
	}
}

// WritePump drains the send buffer to the peer and keeps the connection alive
// with pings. Each write is bounded so one slow peer cannot stall anyone else.
func (c *Client) WritePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
