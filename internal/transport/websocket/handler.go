package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatgate/chat-service/internal/services/conversation"
)

const (
	// DefaultMaxFrameBytes caps a single inbound frame. Frames above it are
	// refused at the read limit with a close before dispatch.
	DefaultMaxFrameBytes = 64 * 1024

	// DefaultReadTimeout is how long a connection may stay silent. Control
	// pongs and data frames both count as activity.
	DefaultReadTimeout = 60 * time.Second

	// DefaultPingInterval is the keepalive ping cadence. It must stay below
	// the read timeout.
	DefaultPingInterval = 30 * time.Second

	// DefaultEventTimeout bounds the handling of one inbound event.
	DefaultEventTimeout = 30 * time.Second
)

// Handler upgrades HTTP requests and runs the per-connection read pump.
// Each inbound frame is handled as an independent, bounded invocation of
// the conversation service.
type Handler struct {
	hub          *Hub
	conversation conversation.Service
	upgrader     websocket.Upgrader
	logger       zerolog.Logger

	maxFrameBytes int64
	readTimeout   time.Duration
	pingInterval  time.Duration
	eventTimeout  time.Duration
}

// HandlerConfig holds the configuration for the transport handler.
type HandlerConfig struct {
	Hub          *Hub
	Conversation conversation.Service

	// Logger defaults to the global logger.
	Logger *zerolog.Logger

	// MaxFrameBytes defaults to DefaultMaxFrameBytes.
	MaxFrameBytes int64

	// ReadTimeout defaults to DefaultReadTimeout.
	ReadTimeout time.Duration

	// PingInterval defaults to DefaultPingInterval.
	PingInterval time.Duration

	// EventTimeout defaults to DefaultEventTimeout.
	EventTimeout time.Duration
}

// NewHandler creates a new transport handler.
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}
	if cfg.Conversation == nil {
		return nil, fmt.Errorf("conversation service is required")
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	maxFrameBytes := cfg.MaxFrameBytes
	if maxFrameBytes <= 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	pingInterval := cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	eventTimeout := cfg.EventTimeout
	if eventTimeout <= 0 {
		eventTimeout = DefaultEventTimeout
	}

	return &Handler{
		hub:          cfg.Hub,
		conversation: cfg.Conversation,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Browser clients authenticate in-band with a bearer token,
				// not with cookies, so cross-origin upgrades carry no
				// ambient credentials.
				return true
			},
		},
		logger:        logger,
		maxFrameBytes: maxFrameBytes,
		readTimeout:   readTimeout,
		pingInterval:  pingInterval,
		eventTimeout:  eventTimeout,
	}, nil
}

// Handle upgrades the request and runs the read pump until the connection
// closes.
func (h *Handler) Handle(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn().Err(err).Str("remote_addr", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	connectionID := newConnectionID()

	ctx, cancel := context.WithTimeout(context.Background(), h.eventTimeout)
	err = h.conversation.HandleConnect(ctx, connectionID)
	cancel()
	if err != nil {
		h.logger.Error().Err(err).Str("connection_id", connectionID).Msg("failed to register connection")
		h.refuse(ws, websocket.CloseInternalServerErr, "failed to register connection")
		return
	}

	if err := h.hub.add(connectionID, ws); err != nil {
		h.logger.Warn().Err(err).Str("connection_id", connectionID).Msg("failed to attach connection")
		h.refuse(ws, websocket.CloseGoingAway, "server shutting down")
		h.disconnect(connectionID)
		return
	}

	h.logger.Info().
		Str("connection_id", connectionID).
		Str("remote_addr", c.ClientIP()).
		Msg("connection opened")

	h.readPump(connectionID, ws)
}

// readPump reads frames until the connection fails or closes, dispatching
// each one to the conversation service.
func (h *Handler) readPump(connectionID string, ws *websocket.Conn) {
	defer h.teardown(connectionID, ws)

	ws.SetReadLimit(h.maxFrameBytes)
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	stopPing := h.startPinger(ws)
	defer stopPing()

	for {
		ws.SetReadDeadline(time.Now().Add(h.readTimeout))

		_, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				h.logger.Debug().Err(err).Str("connection_id", connectionID).Msg("connection read failed")
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), h.eventTimeout)
		if err := h.conversation.HandleMessage(ctx, connectionID, payload); err != nil {
			h.logger.Error().Err(err).Str("connection_id", connectionID).Msg("failed to handle message")
		}
		cancel()
	}
}

// startPinger keeps the connection alive with control pings. Control writes
// are safe alongside the hub's data writes.
func (h *Handler) startPinger(ws *websocket.Conn) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(DefaultWriteTimeout)); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}

// teardown detaches the connection and cleans up its durable records. It
// runs on a fresh context: the socket is already gone by the time cleanup
// starts.
func (h *Handler) teardown(connectionID string, ws *websocket.Conn) {
	h.hub.remove(connectionID)
	h.disconnect(connectionID)
	ws.Close()
	h.logger.Info().Str("connection_id", connectionID).Msg("connection closed")
}

func (h *Handler) disconnect(connectionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.eventTimeout)
	defer cancel()
	if err := h.conversation.HandleDisconnect(ctx, connectionID); err != nil {
		h.logger.Warn().Err(err).Str("connection_id", connectionID).Msg("failed to clean up connection")
	}
}

// refuse closes a socket that never joined the hub.
func (h *Handler) refuse(ws *websocket.Conn, code int, reason string) {
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(DefaultWriteTimeout))
	ws.Close()
}

func newConnectionID() string {
	return "conn_" + uuid.New().String()
}
