package websocket

import (
	"chat-hub/contract"
	"chat-hub/observability"
	"chat-hub/services"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Options tunes the lifetime of every /chat connection.
type Options struct {
	AuthTimeout    time.Duration
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingInterval   time.Duration
	BufferSize     int
	MaxMessageSize int64
}

// Handler upgrades /chat requests and runs one Connection per socket.
type Handler struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	chat     *services.ChatService
	auth     services.IAuthService
	presence contract.IPresence
	metrics  *observability.Metrics
	options  Options
	live     sync.WaitGroup
}

func NewHandler(log *slog.Logger, chat *services.ChatService, auth services.IAuthService,
	presence contract.IPresence, metrics *observability.Metrics, options Options) *Handler {
	return &Handler{
		log:      log,
		chat:     chat,
		auth:     auth,
		presence: presence,
		metrics:  metrics,
		options:  options,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeHTTP blocks for the whole lifetime of the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.live.Add(1)
	defer h.live.Done()
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	newConnection(h, ws).run(r.Context())
}

// Wait blocks until every connection has left presence and released its socket.
// http.Server.Shutdown does not track hijacked connections, call Wait after it.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.live.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
