package websocket

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/resolver"
	"chat-hub/sink"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type state int

const (
	stateConnecting state = iota
	stateAwaitingAuth
	stateAuthenticated
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateAwaitingAuth:
		return "awaiting_auth"
	case stateAuthenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// Connection is the actor owning one socket.
// Every field is touched only by the goroutine running run, which is also
// the single writer of the socket. A second goroutine only reads frames.
type Connection struct {
	id        uuid.UUID
	log       *slog.Logger
	handler   *Handler
	ws        *websocket.Conn
	sink      *sink.ConnectionSink
	resolvers resolver.Table

	state    state
	identity domain.Identity
	session  domain.Session

	authTimer   *time.Timer
	authTimeout <-chan time.Time
}

func newConnection(h *Handler, ws *websocket.Conn) *Connection {
	id := uuid.New()
	c := &Connection{
		id:      id,
		log:     h.log.With("connection_id", id),
		handler: h,
		ws:      ws,
		sink:    sink.NewConnectionSink(h.options.BufferSize),
		state:   stateConnecting,
	}
	c.resolvers = h.chat.Resolvers(c)
	return c
}

// Identity implements resolver.Caller.
func (c *Connection) Identity() (domain.Identity, bool) {
	if c.state != stateAuthenticated {
		return domain.Identity{}, false
	}
	return c.identity, true
}

// Authenticate runs the AwaitingAuth to Authenticated transition.
// Failures leave the connection waiting and the timer running.
func (c *Connection) Authenticate(ctx context.Context, token string) (any, error) {
	if c.state == stateAuthenticated {
		return nil, errors.ErrAlreadyAuthorized
	}

	identity, err := c.handler.auth.Authorize(ctx, token)
	if err != nil {
		c.handler.metrics.AuthTotal.WithLabelValues(authOutcome(err)).Inc()
		c.log.Info("Authorization refused", "error", err)
		return nil, err
	}
	session, err := c.handler.presence.Join(ctx, identity, c.sink)
	if err != nil {
		c.handler.metrics.AuthTotal.WithLabelValues(observability.OutcomeError).Inc()
		return nil, err
	}

	c.stopAuthTimer()
	c.identity = identity
	c.session = session
	c.state = stateAuthenticated
	c.log = c.log.With("user_id", identity.ID, "session_id", session.ID)
	c.handler.metrics.AuthTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	c.log.Info("Connection authenticated")
	return map[string]any{"status": "success"}, nil
}

func (c *Connection) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	c.handler.metrics.ConnectionsActive.Inc()
	defer c.close(ctx)

	options := c.handler.options
	if options.MaxMessageSize > 0 {
		c.ws.SetReadLimit(options.MaxMessageSize)
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(options.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(options.PongTimeout))
	})

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go c.readLoop(ctx, frames, readErr)

	c.state = stateAwaitingAuth
	if err := c.write(domain.MessageEnvelope(domain.TypeInfo, "waiting for token")); err != nil {
		c.log.Warn("Unable to greet connection", "error", err)
		return
	}
	c.authTimer = time.NewTimer(options.AuthTimeout)
	c.authTimeout = c.authTimer.C

	ping := time.NewTicker(options.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) &&
				closeErr.Code != websocket.CloseGoingAway && closeErr.Code != websocket.CloseNormalClosure {
				c.log.Warn("Connection read failed", "error", err)
			} else {
				c.log.Debug("Connection closed by peer", "error", err)
			}
			return
		case frame := <-frames:
			if err := c.dispatch(ctx, frame); err != nil {
				c.log.Warn("Connection write failed", "error", err)
				return
			}
		case <-c.authTimeout:
			c.expire()
			return
		case evt := <-c.sink.Events():
			if err := c.deliver(evt); err != nil {
				c.log.Warn("Broadcast write failed", "error", err)
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(options.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Debug("Ping failed", "error", err)
				return
			}
		}
	}
}

// readLoop forwards text frames to the actor until the socket fails.
func (c *Connection) readLoop(ctx context.Context, frames chan<- []byte, readErr chan<- error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			readErr <- fmt.Errorf("%w: %w", errors.ErrTransportClosed, err)
			return
		}
		select {
		case frames <- data:
		case <-ctx.Done():
			return
		}
	}
}

// expire answers the timeout and closes the socket with a close frame.
func (c *Connection) expire() {
	c.handler.metrics.AuthTotal.WithLabelValues(observability.OutcomeTimeout).Inc()
	c.log.Info("Authorization timeout")
	_ = c.write(domain.NewEnvelope(domain.TypeAuthorizationResponse, map[string]any{
		"accepted": false,
		"message":  errors.ErrAuthTimeout.Error(),
	}))
	deadline := time.Now().Add(c.handler.options.WriteTimeout)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, errors.ErrAuthTimeout.Error()), deadline)
}

func (c *Connection) deliver(evt event.DomainEvent) error {
	switch e := evt.(type) {
	case event.MessageDelivered:
		return c.write(e.Envelope())
	default:
		c.log.Debug("Ignoring event", "group", evt.Group())
		return nil
	}
}

func (c *Connection) write(envelope domain.Envelope) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.handler.options.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(envelope)
}

func (c *Connection) stopAuthTimer() {
	if c.authTimer != nil {
		c.authTimer.Stop()
	}
	// A nil channel never fires, a tick already queued is ignored
	c.authTimeout = nil
}

// close leaves the presence group in every state and releases the socket.
func (c *Connection) close(ctx context.Context) {
	c.stopAuthTimer()
	if c.state == stateAuthenticated {
		if err := c.handler.presence.Leave(ctx, c.session, c.sink); err != nil {
			c.log.Error("Unable to leave presence", "error", err)
		}
	}
	c.state = stateClosed
	if err := c.ws.Close(); err != nil {
		c.log.Debug("Socket close", "error", err)
	}
	c.handler.metrics.ConnectionsActive.Dec()
	c.log.Debug("Connection closed")
}

func authOutcome(err error) string {
	switch {
	case errors.Is(err, errors.ErrAuthInvalid):
		return observability.OutcomeInvalid
	case errors.Is(err, errors.ErrAuthInactive):
		return observability.OutcomeInactive
	default:
		return observability.OutcomeError
	}
}
